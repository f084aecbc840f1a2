package formatting

import (
	"encoding/json"
	"fmt"
)

// EncodeJSON renders v as JSON, indented when pretty is set. Values that
// cannot be encoded yield a JSON object carrying the error so callers
// always print valid JSON.
func EncodeJSON(v interface{}, pretty bool) string {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("failed to format JSON: %v", err)})
	}
	return string(b)
}

// PrettyJSON is EncodeJSON with indentation.
func PrettyJSON(v interface{}) string {
	return EncodeJSON(v, true)
}
