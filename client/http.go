package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// httpGet performs a GET request and decodes the JSON response.
func httpGet(url string, result any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpPostJSON performs a POST request with a JSON body and decodes the
// JSON response. Any 2xx status is a success.
func httpPostJSON(url string, body any, result any) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("POST %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
