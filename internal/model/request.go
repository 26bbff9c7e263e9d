/**
 * Model: request payloads
 * @description: JSON request bodies accepted by the sync endpoints
 * @func: WebhookRequest, BatchMutationRequest, SweepRequest
 */
package model

// WebhookRequest is the inbound webhook body from the external
// application. Record is kept loosely typed: upstream payloads carry
// inconsistent date field names that the conflict resolver inspects.
type WebhookRequest struct {
	Record    map[string]interface{} `json:"record" binding:"required"`
	Source    string                 `json:"source"`
	SyncToken string                 `json:"sync_token,omitempty"` // echo write-token, present when the peer relays it
}

// BatchMutationRequest is the batch payment mutation body. BatchID is
// optional; one is generated when absent.
type BatchMutationRequest struct {
	BatchID string        `json:"batch_id"`
	Items   []PaymentItem `json:"items"`
}

// SweepRequest optionally narrows a CRM sweep.
type SweepRequest struct {
	Cursor string `json:"cursor,omitempty"` // resume point, empty starts from the beginning
}

// PushRequest carries the field patch for an outbound push enqueue.
type PushRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}
