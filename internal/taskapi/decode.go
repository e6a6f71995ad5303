package taskapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when a response body is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON body")

	// ErrNoTaskID is returned when a create response carries no usable task.id.
	ErrNoTaskID = errors.New("response has no task id")
)

// createdSchema is the contract of a 201 response from /addTask.
const createdSchema = `{
  "type": "object",
  "required": ["task"],
  "properties": {
    "task": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": ["string", "integer"]}
      }
    }
  }
}`

var createdContract = jsonschema.MustCompileString("addTask-created.json", createdSchema)

// ValidJSON reports whether body is a well-formed JSON document.
func ValidJSON(body []byte) bool {
	return len(body) > 0 && gjson.ValidBytes(body)
}

// DecodeCreated extracts the identifier of a freshly created task.
//
// It returns ErrInvalidJSON when the body does not parse, and ErrNoTaskID
// (wrapped with the schema violation) when it parses but lacks task.id.
// Numeric IDs are normalised to their decimal string form.
func DecodeCreated(body []byte) (string, error) {
	if !ValidJSON(body) {
		return "", ErrInvalidJSON
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", ErrInvalidJSON
	}
	if err := createdContract.Validate(doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoTaskID, err)
	}

	id := gjson.GetBytes(body, "task.id").String()
	if id == "" {
		return "", ErrNoTaskID
	}
	return id, nil
}
