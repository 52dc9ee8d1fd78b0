// Command parity_check replays read endpoints against the legacy backend and
// this API, reporting status and body differences. Volatile fields such as
// tokens and timestamps are blanked before comparison.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type endpoint struct {
	Method   string
	Path     string
	Body     string
	Critical bool
}

var defaultEndpoints = []endpoint{
	{Method: http.MethodGet, Path: "/api/v1/students", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/students/search?term=a", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/students/statistics", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/students/1", Critical: false},
	{Method: http.MethodPost, Path: "/api/v1/auth/validate", Body: `{"token":"bogus"}`, Critical: true},
}

// Fields whose values legitimately differ between the two backends.
var volatileFields = map[string]bool{
	"token":      true,
	"expires_at": true,
	"created_at": true,
	"updated_at": true,
}

type result struct {
	Endpoint     endpoint
	NewStatus    int
	LegacyStatus int
	StatusMatch  bool
	BodyMatch    bool
	Err          error
}

func main() {
	var (
		newBase    string
		legacyBase string
		username   string
		password   string
		timeout    time.Duration
	)
	flag.StringVar(&newBase, "new-base", "http://localhost:8080", "rewritten API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:5000", "legacy API base URL")
	flag.StringVar(&username, "username", "admin", "login username used against both backends")
	flag.StringVar(&password, "password", "admin02", "login password used against both backends")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	newToken, err := login(client, newBase, username, password)
	if err != nil {
		log.Fatalf("login against %s failed: %v", newBase, err)
	}
	legacyToken, err := login(client, legacyBase, username, password)
	if err != nil {
		log.Fatalf("login against %s failed: %v", legacyBase, err)
	}

	var breaking int
	for _, ep := range defaultEndpoints {
		res := compare(client, ep, newBase, newToken, legacyBase, legacyToken)
		report(res)
		if ep.Critical && (res.Err != nil || !res.StatusMatch || !res.BodyMatch) {
			breaking++
		}
	}

	fmt.Printf("breaking differences: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func login(client *http.Client, base, username, password string) (string, error) {
	payload := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp, err := client.Post(strings.TrimRight(base, "/")+"/api/v1/auth/login", "application/json", strings.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
		// Legacy responses are not enveloped.
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Data.Token != "" {
		return body.Data.Token, nil
	}
	return body.Token, nil
}

func compare(client *http.Client, ep endpoint, newBase, newToken, legacyBase, legacyToken string) result {
	res := result{Endpoint: ep}

	newStatus, newBody, err := fetch(client, newBase, newToken, ep)
	if err != nil {
		res.Err = fmt.Errorf("new backend: %w", err)
		return res
	}
	legacyStatus, legacyBody, err := fetch(client, legacyBase, legacyToken, ep)
	if err != nil {
		res.Err = fmt.Errorf("legacy backend: %w", err)
		return res
	}

	res.NewStatus = newStatus
	res.LegacyStatus = legacyStatus
	res.StatusMatch = newStatus == legacyStatus
	res.BodyMatch = bodiesEqual(newBody, legacyBody)
	return res
}

func fetch(client *http.Client, base, token string, ep endpoint) (int, []byte, error) {
	var body io.Reader
	if ep.Body != "" {
		body = strings.NewReader(ep.Body)
	}
	req, err := http.NewRequest(ep.Method, strings.TrimRight(base, "/")+ep.Path, body)
	if err != nil {
		return 0, nil, err
	}
	if ep.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	scrub(&aj)
	scrub(&bj)
	return reflect.DeepEqual(aj, bj)
}

// scrub blanks volatile fields and folds whole-number floats so that both
// backends' JSON encodings compare equal.
func scrub(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if volatileFields[k] {
				val[k] = ""
				continue
			}
			scrub(&inner)
			val[k] = inner
		}
	case []interface{}:
		for i, inner := range val {
			scrub(&inner)
			val[i] = inner
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func report(res result) {
	status := "OK"
	switch {
	case res.Err != nil:
		status = "ERROR"
	case !res.StatusMatch || !res.BodyMatch:
		status = "DIFF"
	}
	fmt.Printf("[%s] %s %s\n", status, res.Endpoint.Method, res.Endpoint.Path)
	if res.Err != nil {
		fmt.Printf("  error: %v\n", res.Err)
		return
	}
	fmt.Printf("  status: new=%d legacy=%d | body match: %t | critical: %t\n",
		res.NewStatus, res.LegacyStatus, res.BodyMatch, res.Endpoint.Critical)
}
