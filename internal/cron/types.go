package cron

import "github.com/google/uuid"

// Schedule kinds: "cron" uses a 6-field expression with seconds,
// "every" repeats on an interval, "at" fires once at a wall-clock time.
type Schedule struct {
	Kind    string `json:"kind"`
	Expr    string `json:"expr,omitempty"`
	EveryMs int64  `json:"everyMs,omitempty"`
	AtMs    int64  `json:"atMs,omitempty"`
}

// Payload describes what a job delivers when it fires. Kind "greeting"
// asks the responder to generate the text; Kind "message" sends
// Message verbatim.
type Payload struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
	Channel string `json:"channel"`
	To      string `json:"to"`
}

type JobState struct {
	LastRunAtMs int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

type CronJob struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	Schedule       Schedule `json:"schedule"`
	Payload        Payload  `json:"payload"`
	State          JobState `json:"state"`
	DeleteAfterRun bool     `json:"deleteAfterRun,omitempty"`
}

func NewCronJob(name string, schedule Schedule, payload Payload) CronJob {
	return CronJob{
		ID:       uuid.NewString(),
		Name:     name,
		Enabled:  true,
		Schedule: schedule,
		Payload:  payload,
	}
}
