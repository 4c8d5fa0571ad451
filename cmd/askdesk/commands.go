package main

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mammadli/askdesk/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		role, _ := cmd.Flags().GetString("role")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"question": question,
		}
		if role != "" {
			req["caller"] = map[string]string{
				"id":           "cli",
				"display_name": "CLI User",
				"role":         role,
			}
		}

		resp, err := client.post(cmd.Context(), "/ask", req)
		if err != nil {
			return err
		}

		var result struct {
			Answer string `json:"answer"`
			Tier   string `json:"tier"`
			Errors []struct {
				Tier    string `json:"tier"`
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		fmt.Fprintf(os.Stderr, "\n%s %s\n", colorize(colorBold, "tier:"), result.Tier)
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", colorize(colorYellow, e.Tier), e.Message)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("role", "", "caller role: admin, analyst, or standard")
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the document base",
}

var docsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a document to the document base",
	Long: `Add a document to the document base.

Examples:
  askdesk docs add --text "Office hours are 09:00-18:00" --title "Working hours"
  askdesk docs add --file ./handbook.pdf --tags hr,policy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")
		tagsStr, _ := cmd.Flags().GetString("tags")

		if text == "" && file == "" {
			return fmt.Errorf("one of --text or --file is required")
		}

		var tags []string
		if tagsStr != "" {
			tags = strings.Split(tagsStr, ",")
			for i := range tags {
				tags[i] = strings.TrimSpace(tags[i])
			}
		}

		req := map[string]any{
			"source": "cli",
		}
		if tags != nil {
			req["tags"] = tags
		}
		if title != "" {
			req["title"] = title
		}

		if text != "" {
			req["content"] = text
		} else {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["file_b64"] = base64.StdEncoding.EncodeToString(data)
			req["filename"] = filepath.Base(file)
			if mt := mime.TypeByExtension(filepath.Ext(file)); mt != "" {
				req["mime_type"] = mt
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/documents", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Stored document %s (%s)", result["id"], result["status"])
		return nil
	},
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/documents?limit=%d", limit))
		if err != nil {
			return err
		}

		var docs []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Status    string `json:"status"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return nil
		}

		for _, d := range docs {
			title := d.Title
			if len(title) > 60 {
				title = title[:60] + "..."
			}
			fmt.Printf("%s  %-8s  %s  %s\n",
				colorize(colorCyan, d.ID[:8]),
				d.Status,
				d.CreatedAt,
				title,
			)
		}
		return nil
	},
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted document %s", args[0])
		return nil
	},
}

var docsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-extract text from every stored document",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/documents/reindex", nil)
		if err != nil {
			return err
		}

		var result struct {
			Reindexed int `json:"reindexed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Reindexed %d documents", result.Reindexed)
		return nil
	},
}

func init() {
	docsAddCmd.Flags().String("text", "", "text content to store")
	docsAddCmd.Flags().String("file", "", "file path to upload")
	docsAddCmd.Flags().String("title", "", "title for the document")
	docsAddCmd.Flags().String("tags", "", "comma-separated tags")
	docsListCmd.Flags().Int("limit", 50, "maximum number of documents to list")
	docsCmd.AddCommand(docsAddCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsRmCmd)
	docsCmd.AddCommand(docsReindexCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
