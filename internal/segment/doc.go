// Package segment defines the timed bilingual segment model and the JSONL
// artifact exchanged between pipeline steps.
package segment
