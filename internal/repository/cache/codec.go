package cache

import (
	"fmt"
	"net/http"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/vmihailenco/msgpack/v5"
)

type record struct {
	URL    string              `msgpack:"url"`
	Status int                 `msgpack:"status"`
	Header map[string][]string `msgpack:"header"`
	Body   []byte              `msgpack:"body"`
}

func encodeEntry(url string, resp *entity.Response) ([]byte, error) {
	b, err := msgpack.Marshal(record{
		URL:    url,
		Status: resp.Status,
		Header: resp.Header,
		Body:   resp.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return b, nil
}

func decodeEntry(b []byte) (string, *entity.Response, error) {
	var rec record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return "", nil, fmt.Errorf("decode cache entry: %w", err)
	}

	header := http.Header(rec.Header)
	if header == nil {
		header = http.Header{}
	}

	return rec.URL, &entity.Response{
		Status: rec.Status,
		Header: header,
		Body:   rec.Body,
	}, nil
}

func encodeHeader(h http.Header) ([]byte, error) {
	return msgpack.Marshal(map[string][]string(h))
}

func decodeHeader(b []byte) (http.Header, error) {
	h := http.Header{}
	if len(b) == 0 {
		return h, nil
	}
	var m map[string][]string
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range m {
		h[k] = v
	}
	return h, nil
}
