package entity

import "net/http"

type RequestMode string

const (
	ModeNavigate RequestMode = "navigate"
	ModeOther    RequestMode = "other"
)

// Request is what the interceptor decides on. URL is absolute and is also the cache key.
type Request struct {
	Method      string
	URL         string
	Mode        RequestMode
	Destination string
	Header      http.Header
	Body        []byte
}

func NewGetRequest(url string) *Request {
	return &Request{
		Method: http.MethodGet,
		URL:    url,
		Mode:   ModeOther,
		Header: http.Header{},
	}
}

func (r *Request) IsNavigation() bool {
	return r.Mode == ModeNavigate
}

func (r *Request) WantsImage() bool {
	return r.Destination == "image"
}
