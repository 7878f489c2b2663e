package errmodel

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ErrorReply is the codec-independent wire shape of an ErrorModel.
type ErrorReply struct {
	Code    int32               `json:"code"`
	Message string              `json:"message"`
	Status  int32               `json:"status"`
	Details []ErrorDetailsReply `json:"details"`
}

// ErrorDetailsReply is the wire shape of an ErrorDetails.
type ErrorDetailsReply struct {
	Reason   string     `json:"reason"`
	Domain   string     `json:"domain"`
	Metadata []MetaData `json:"metadata"`
}

// MetaData is one flattened metadata pair.
type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Reply flattens the model into its wire shape. Reasons and keys are rendered with their String
// forms; metadata pairs are sorted by key so the output is stable, but peers must not rely on order.
func (m *ErrorModel[R]) Reply() *ErrorReply {
	reply := &ErrorReply{
		Code:    m.Code,
		Message: m.Message,
		Status:  m.Status.Wire(),
		Details: make([]ErrorDetailsReply, 0, len(m.Details)),
	}
	for _, d := range m.Details {
		reply.Details = append(reply.Details, d.Reply())
	}
	return reply
}

// Reply flattens a single detail.
func (d ErrorDetails[R]) Reply() ErrorDetailsReply {
	md := make([]MetaData, 0, len(d.Metadata))
	for k, v := range d.Metadata {
		md = append(md, MetaData{Key: k.String(), Value: v})
	}
	sort.Slice(md, func(i, j int) bool { return md[i].Key < md[j].Key })
	return ErrorDetailsReply{
		Reason:   d.Reason.String(),
		Domain:   d.Domain,
		Metadata: md,
	}
}

// ModelFromReply rebuilds a typed ErrorModel from its wire shape. Unknown statuses, reasons and
// metadata keys are errors.
func ModelFromReply[R Reason](reply *ErrorReply) (*ErrorModel[R], error) {
	status, err := ParseStatus(reply.Status)
	if err != nil {
		return nil, err
	}
	m := NewErrorModel[R](status, reply.Code, reply.Message)
	for _, d := range reply.Details {
		reason, err := ParseReason[R](d.Reason)
		if err != nil {
			return nil, fmt.Errorf("detail %q: %w", d.Domain, err)
		}
		b := m.WithDetails(reason, d.Domain)
		for _, md := range d.Metadata {
			key, err := ParseMetaKey(md.Key)
			if err != nil {
				return nil, err
			}
			b.AppendMetadata(key, md.Value)
		}
	}
	return m, nil
}

// MarshalJSON encodes the model in its wire shape.
func (m *ErrorModel[R]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Reply())
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (m *ErrorModel[R]) UnmarshalJSON(data []byte) error {
	var reply ErrorReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return err
	}
	decoded, err := ModelFromReply[R](&reply)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
