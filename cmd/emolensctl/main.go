package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
)

func usage() {
	fmt.Fprintf(os.Stderr, `emolensctl drives the emolens control API.

Usage:
    %s [-url URL] [-token TOKEN] [-timeout SECONDS] [-verbose] COMMAND [ARGS]

Commands:
    status                      show the session snapshot
    start | stop | reset        control the detection session
    finalize                    finalize the dominant emotion and print suggestions
    suggestions LABEL           list suggestions for a label
    settings [DEFER TICK QUAL]  show or update loop settings (milliseconds, JPEG quality)
    login USER PASSWORD         print a token for -token / EMOLENS_TOKEN

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		urlF     = flag.String("url", envOr("EMOLENS_URL", "http://localhost:8080"), "emolens base URL")
		tokenF   = flag.String("token", os.Getenv("EMOLENS_TOKEN"), "Bearer token for control commands")
		timeoutF = flag.Int("timeout", 30, "Request timeout in seconds")
		verboseF = flag.Bool("verbose", false, "Print request and response details")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	client := newAPIClient(*urlF, *tokenF, *timeoutF, *verboseF)
	out, err := run(client, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println(out)
}

// run executes one command and returns what to print
func run(c *apiClient, cmd string, args []string) (string, error) {
	var (
		data []byte
		err  error
	)

	switch cmd {
	case "status":
		data, err = c.call(http.MethodGet, "/api/status", nil)
	case "start", "stop", "reset", "finalize":
		data, err = c.call(http.MethodPost, "/api/session/"+cmd, nil)
	case "suggestions":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: suggestions LABEL")
		}
		data, err = c.call(http.MethodGet, "/api/suggestions/"+args[0], nil)
	case "settings":
		data, err = settings(c, args)
	case "login":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: login USER PASSWORD")
		}
		data, err = c.call(http.MethodPost, "/api/auth/login", map[string]string{"username": args[0], "password": args[1]})
		if err == nil {
			var resp struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(data, &resp); err != nil {
				return "", fmt.Errorf("invalid login response: %w", err)
			}
			return resp.Token, nil
		}
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return "", err
	}
	return pretty(data), nil
}

func settings(c *apiClient, args []string) ([]byte, error) {
	switch len(args) {
	case 0:
		return c.call(http.MethodGet, "/api/settings", nil)
	case 3:
		values := make([]int, 3)
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", a)
			}
			values[i] = v
		}
		return c.call(http.MethodPut, "/api/settings", map[string]int{
			"defer_delay_ms":   values[0],
			"tick_interval_ms": values[1],
			"jpeg_quality":     values[2],
		})
	default:
		return nil, fmt.Errorf("usage: settings [DEFER_MS TICK_MS JPEG_QUALITY]")
	}
}

func pretty(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
