package entity

import "net/http"

// Source tells where a response came from. It is informational and never persisted.
type Source string

const (
	SourceCache       Source = "cache"
	SourceNetwork     Source = "network"
	SourceFallback    Source = "fallback"
	SourcePassthrough Source = "passthrough"
)

// Response is a fully buffered HTTP response. Body is never mutated after
// construction, so one Response may be stored and returned at the same time.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Source Source
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Clone returns a copy with its own header map. The body slice is shared.
func (r *Response) Clone() *Response {
	return &Response{
		Status: r.Status,
		Header: r.Header.Clone(),
		Body:   r.Body,
		Source: r.Source,
	}
}

func (r *Response) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}
