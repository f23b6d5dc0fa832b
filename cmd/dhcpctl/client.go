package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veesix-networks/osdhcpd/internal/admin"
	"github.com/veesix-networks/osdhcpd/internal/server"
)

// Client talks to the osdhcpd admin API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Ping() error {
	return c.get("/healthz", &struct {
		Serving bool `json:"serving"`
	}{})
}

func (c *Client) Leases() ([]server.LeaseRecord, error) {
	var leases []server.LeaseRecord
	err := c.get("/v1/leases", &leases)
	return leases, err
}

func (c *Client) Stats() (server.PoolStats, error) {
	var stats server.PoolStats
	err := c.get("/v1/stats", &stats)
	return stats, err
}

func (c *Client) Options() ([]admin.OptionPayload, error) {
	var opts []admin.OptionPayload
	err := c.get("/v1/options", &opts)
	return opts, err
}

func (c *Client) SetOption(code uint8, valueHex string) error {
	payload := admin.OptionPayload{Code: code, Value: valueHex}
	return c.put("/v1/options", payload, nil)
}

func (c *Client) Parameters() (server.Parameters, error) {
	var params server.Parameters
	err := c.get("/v1/parameters", &params)
	return params, err
}

func (c *Client) SetLeaseTimes(defaultSecs, maxSecs uint32) (server.Parameters, error) {
	payload := struct {
		Default uint32 `json:"default"`
		Max     uint32 `json:"max"`
	}{Default: defaultSecs, Max: maxSecs}
	var params server.Parameters
	err := c.put("/v1/parameters/lease-times", payload, &params)
	return params, err
}

func (c *Client) Sweep() (int, error) {
	var result struct {
		Reclaimed int `json:"reclaimed"`
	}
	err := c.post("/v1/sweep", nil, &result)
	return result.Reclaimed, err
}

func (c *Client) get(path string, dest any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, dest)
}

func (c *Client) put(path string, payload, dest any) error {
	return c.send(http.MethodPut, path, payload, dest)
}

func (c *Client) post(path string, payload, dest any) error {
	return c.send(http.MethodPost, path, payload, dest)
}

func (c *Client) send(method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, dest)
}

func decodeResponse(resp *http.Response, dest any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
