package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/urfave/cli/v2"
)

type adminClient struct {
	baseUrl string
	token   string
	client  *http.Client
}

func newAdminClient(ctx *cli.Context) *adminClient {
	return &adminClient{
		baseUrl: strings.TrimRight(ctx.String(urlFlagName), "/") + "/v1/admin",
		token:   fromEnv(ctx.String(tokenFlagName), tokenFlagName),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *adminClient) get(path string, query url.Values) error {
	if len(query) > 0 {
		path = fmt.Sprintf("%s?%s", path, query.Encode())
	}
	return c.do(http.MethodGet, path, nil)
}

func (c *adminClient) post(path string, body any) error {
	return c.do(http.MethodPost, path, body)
}

func (c *adminClient) put(path string, body any) error {
	return c.do(http.MethodPut, path, body)
}

func (c *adminClient) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseUrl+path, reader)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	if len(c.token) > 0 {
		req.Header.Add("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, buf)
	}
	return printJSON(buf)
}

func printJSON(buf []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, buf, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}
