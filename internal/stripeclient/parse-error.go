package stripeclient

import (
	"encoding/json"
	"fmt"
)

type stripeErrorRaw struct {
	Status        int    `json:"status"`
	Message       string `json:"message"`
	Type          string `json:"type"`
	RequestID     string `json:"request_id"`
	RequestLogURL string `json:"request_log_url"`
}

// parseErr extracts the human-readable message from the provider's JSON
// error body; anything unparseable passes through untouched.
func (s *StripeClient) parseErr(err error) error {
	var se stripeErrorRaw
	payload := []byte(err.Error())
	e := json.Unmarshal(payload, &se)
	if e != nil {
		return err
	}
	return fmt.Errorf("status %d: %s", se.Status, se.Message)
}
