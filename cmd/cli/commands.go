package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(nullifyCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(metricsCmd)

	maintenanceCmd.Flags().Bool("force", false, "Run even if maintenance already ran this week")
	cancelCmd.Flags().String("correlation-id", "", "Cancel the pending match with this correlation id")
	cancelCmd.Flags().String("match-id", "", "Cancel pending confirmations for this match id")
	cancelCmd.Flags().String("user-id", "", "Cancel pending confirmations involving this user id")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List the registered league members",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/members")
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List all recorded matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/matches")
	},
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Trigger the weekly maintenance run",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/maintenance/weekly"
		if force, _ := cmd.Flags().GetBool("force"); force {
			endpoint += "?force=true"
		}
		return performPostRequest(endpoint)
	},
}

var nullifyCmd = &cobra.Command{
	Use:   "nullify [matchID]",
	Short: "Reverse a confirmed match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/admin/nullify?matchID=" + url.QueryEscape(args[0]))
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel pending confirmations by correlation id, match id or user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if v, _ := cmd.Flags().GetString("correlation-id"); v != "" {
			params.Set("correlationID", v)
		}
		if v, _ := cmd.Flags().GetString("match-id"); v != "" {
			params.Set("matchID", v)
		}
		if v, _ := cmd.Flags().GetString("user-id"); v != "" {
			params.Set("userID", v)
		}
		if len(params) == 0 {
			return fmt.Errorf("at least one of --correlation-id, --match-id or --user-id is required")
		}
		return performPostRequest("/admin/cancel?" + params.Encode())
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Post(url, "text/plain", strings.NewReader(""))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
