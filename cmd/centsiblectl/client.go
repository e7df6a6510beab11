package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient(api, key string) *resty.Client {
	c := resty.New().
		SetBaseURL(api).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	if key != "" {
		c.SetHeader("X-Api-Key", key)
	}
	return c
}

type replyBody struct {
	Reply   string                 `json:"reply"`
	Details map[string]interface{} `json:"details"`
}

func runSend(api, key, userID, chatID, projectID, text string, out io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text cannot be empty")
	}
	payload := map[string]interface{}{
		"userId":    userID,
		"chatId":    chatID,
		"projectId": projectID,
		"text":      text,
	}
	var reply replyBody
	resp, err := newClient(api, key).R().SetBody(payload).SetResult(&reply).Post("/api/messages")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, _ = fmt.Fprintln(out, reply.Reply)
	return nil
}

func runCallback(api, key, userID, chatID, projectID, data string, out io.Writer) error {
	if strings.TrimSpace(data) == "" {
		return fmt.Errorf("callback data cannot be empty")
	}
	payload := map[string]interface{}{
		"userId":    userID,
		"chatId":    chatID,
		"projectId": projectID,
		"data":      data,
	}
	var reply replyBody
	resp, err := newClient(api, key).R().SetBody(payload).SetResult(&reply).Post("/api/callbacks")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, _ = fmt.Fprintln(out, reply.Reply)
	return nil
}

func runHealth(api string, out io.Writer) error {
	resp, err := newClient(api, "").R().Get("/api/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, _ = fmt.Fprintln(out, resp.String())
	return nil
}
