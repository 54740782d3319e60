package models

import "time"

// ExtractionResult is the structured summary the summarizer produces for a
// span of session text.
type ExtractionResult struct {
	StatedGoal      string
	WhatHappened    []string
	LeftOffAt       string
	LooseThreads    []string
	KeyArtifacts    []Artifact
	SessionComplete bool
	Status          string
	Vibe            string
	RawResponse     string
}

// Artifact is a file the session produced or touched, with a short note.
type Artifact struct {
	Path        string
	Description string
}

// ProjectActivity is the per-project snapshot shown by status displays.
type ProjectActivity struct {
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	Tool           AgentType `json:"tool"`
	SessionID      string    `json:"session_id,omitempty"`
	CurrentTask    string    `json:"current_task,omitempty"`
	Status         string    `json:"status,omitempty"`
	Vibe           string    `json:"vibe,omitempty"`
	LooseThreads   []string  `json:"loose_threads,omitempty"`
	LastActive     time.Time `json:"last_active"`
	LastExtraction time.Time `json:"last_extraction,omitempty"`
}

// ActivityEvent is one line of the daemon's recent event log.
type ActivityEvent struct {
	At      time.Time `json:"at"`
	Project string    `json:"project"`
	Message string    `json:"message"`
}
