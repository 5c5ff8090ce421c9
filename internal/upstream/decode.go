package upstream

import (
	"encoding/json"
	"fmt"
)

// decodeBody decodes an upstream JSON response body into dst. The
// gateway always requests application/json from upstream (Accept also
// lists application/xml for portals that ignore the preference, but
// this client never asks for XML explicitly and treats a non-JSON
// body as a decode failure).
func decodeBody(contentType string, raw []byte, dst any) error {
	_ = contentType
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshalling body: %w", err)
	}
	return nil
}
