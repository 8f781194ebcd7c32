package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if u := os.Getenv("INSIGHTFLOW_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test...")

	// 1. Run a text analysis
	fmt.Println("1. Running text analysis...")
	var run struct {
		SessionID string `json:"session_id"`
	}
	if !sendRequest(http.MethodPost, "/runs", map[string]string{
		"title": "Smoke test " + time.Now().Format(time.RFC3339),
		"text":  "I felt anxious about the launch, but I believe the team is ready. I will review the checklist tomorrow.",
	}, http.StatusOK, &run) || run.SessionID == "" {
		fail("Run analysis")
	}
	fmt.Printf("PASSED: Run analysis (session %s)\n", run.SessionID)
	sessionPath := "/sessions/" + run.SessionID

	// 2. Edit
	fmt.Println("2. Editing elements...")
	if !sendRequest(http.MethodPost, sessionPath+"/elements/insight", map[string]string{"name": "Preparation lowers anxiety"}, http.StatusCreated, nil) {
		fail("Add insight")
	}
	var changes struct {
		Changed bool `json:"changed"`
	}
	if !sendRequest(http.MethodGet, sessionPath+"/changes", nil, http.StatusOK, &changes) || !changes.Changed {
		fail("Change detection")
	}
	fmt.Println("PASSED: Edit")

	// 3. Save and reload
	fmt.Println("3. Saving...")
	if !sendRequest(http.MethodPost, sessionPath+"/save", nil, http.StatusOK, nil) {
		fail("Save")
	}
	if !sendRequest(http.MethodDelete, sessionPath+"/edit", nil, http.StatusNoContent, nil) {
		fail("Close editor")
	}
	var view struct {
		HasChanges bool `json:"has_changes"`
		Elements   struct {
			Insights []struct {
				Name string `json:"name"`
			} `json:"insights"`
		} `json:"elements"`
	}
	if !sendRequest(http.MethodGet, sessionPath+"/elements", nil, http.StatusOK, &view) || view.HasChanges {
		fail("Reload")
	}
	found := false
	for _, in := range view.Elements.Insights {
		found = found || in.Name == "Preparation lowers anxiety"
	}
	if !found {
		fail("Saved insight missing after reload")
	}
	fmt.Println("PASSED: Save and reload")
}

func fail(step string) {
	fmt.Printf("FAILED: %s\n", step)
	os.Exit(1)
}

func sendRequest(method, endpoint string, payload any, want int, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	fmt.Printf("Response: %s\n", string(respBody))

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
