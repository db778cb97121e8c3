package models

// Requests for analysis HTTP endpoints. The analyze body is bound as a raw mapping so that the
// series validator sees nulls and non-numeric values instead of zero values.

type MeterAnalysisRequest struct {
	MeterID string `param:"meter_id" json:"meter_id" validate:"required,max=64"`
	N       int    `query:"n" json:"n" default:"48" validate:"gte=5,lte=2000"`
}

// JobError is the failure part of a job result.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AnalysisJobResult is published to the result topic for every consumed job.
type AnalysisJobResult struct {
	RequestID string            `json:"request_id"`
	OK        bool              `json:"ok"`
	Result    *AnalysisResponse `json:"result,omitempty"`
	Error     *JobError         `json:"error,omitempty"`
}
