// Package services defines the shared error taxonomy for pipeline stages
// and external service adapters.
package services
