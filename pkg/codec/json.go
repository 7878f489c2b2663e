package codec

import "encoding/json"

// JSON encodes any JSON-serializable T.
type JSON[T any] struct{}

func (JSON[T]) Name() string        { return NameJSON }
func (JSON[T]) ContentType() string { return "application/json" }

func (JSON[T]) Encode(v T) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, encodeErr(err)
	}
	return b, nil
}

func (JSON[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, decodeErr(err)
	}
	return v, nil
}
