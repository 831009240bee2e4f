package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
)

const maxJSONBodyBytes = 1 << 20

var (
	ErrInvalidContentType = errors.New("invalid content type")
	ErrIDOutOfRange       = errors.New("id out of range")
)

// DecodeJSONBody decodes a JSON request body of at most 1MB into v.
func DecodeJSONBody(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != ContentType.JSON {
		return ErrInvalidContentType
	}
	if r.Body == nil {
		return errors.New("empty body")
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBodyBytes))
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}

// ParseID parses a path id. Ids above what an INTEGER column holds cannot
// exist and give ErrIDOutOfRange.
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrIDOutOfRange
	}
	if err != nil {
		return 0, err
	}
	if id > math.MaxInt32 {
		return 0, ErrIDOutOfRange
	}
	return id, nil
}
