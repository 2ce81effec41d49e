package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/docfill"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/minutes"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/report"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

var (
	forceTemplate bool
	templateKind  string
	project       string
	meetingDate   string
	blockTokens   int
	emailTo       string
	fillFormat    string
	fillPrompt    string
	fillValues    []string
)

var templateCmd = &cobra.Command{
	Use:   "template <out>",
	Short: "Write the default six-slide report template, or a document template with --kind docx|pptx",
	Example: `  radar template templates/radar_template.pptx
  radar template --kind docx templates/report_template.docx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := args[0]
		if store.Exists(out) && !forceTemplate {
			return fmt.Errorf("%s already exists (use --force to overwrite)", out)
		}
		var err error
		if templateKind == "radar" {
			err = report.SaveDefaultTemplate(out)
		} else {
			var f docfill.Format
			if f, err = docfill.ParseFormat(templateKind); err != nil {
				return err
			}
			err = docfill.SaveDefaultTemplate(f, out)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "template:", out)
		return nil
	},
}

var minutesCmd = &cobra.Command{
	Use:   "minutes <transcript>",
	Short: "Summarize a meeting transcript (.txt, .srt, .vtt, .docx) into Markdown minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Close()

		text, err := minutes.LoadTranscript(args[0])
		if err != nil {
			return err
		}

		reg, err := tool.Default(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		t, err := reg.Resolve("minutes")
		if err != nil {
			return err
		}

		params := map[string]string{"transcript": text, "project": project, "date": meetingDate, "email_to": emailTo}
		if blockTokens > 0 {
			params["block_tokens"] = fmt.Sprint(blockTokens)
		}
		art, err := t.Run(cmd.Context(), tool.Request{Session: cliSession(), Params: params})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "minutes: %s (%s)\n", art.Path, art.Summary)
		return nil
	},
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill the preset document template from a prompt and/or explicit field values",
	Example: `  radar fill --prompt "Executive report on the Acme pilot"
  radar fill --format pptx --set CLIENTE=Acme --set FECHA=2025-11-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]string{"format": fillFormat, "prompt": fillPrompt}
		for _, kv := range fillValues {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return fmt.Errorf("--set %q: expected KEY=VALUE", kv)
			}
			params[strings.TrimSpace(k)] = v
		}

		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Close()

		reg, err := tool.Default(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		t, err := reg.Resolve("template")
		if err != nil {
			return err
		}
		art, err := t.Run(cmd.Context(), tool.Request{Session: cliSession(), Params: params})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "document: %s (%s)\n", art.Path, art.Summary)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for a dashboard user (reads stdin when no argument is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := hashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		reg, err := tool.Default(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, info := range reg.List() {
			fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Description)
		}
		return w.Flush()
	},
}

func init() {
	templateCmd.Flags().BoolVar(&forceTemplate, "force", false, "overwrite an existing file")
	templateCmd.Flags().StringVar(&templateKind, "kind", "radar", "template kind: radar, docx or pptx")
	minutesCmd.Flags().StringVar(&project, "project", "", "project name shown in the minutes")
	minutesCmd.Flags().StringVar(&meetingDate, "date", "", "meeting date (default: today)")
	minutesCmd.Flags().IntVar(&blockTokens, "block-tokens", 0, "target tokens per block (default 1800)")
	minutesCmd.Flags().StringVar(&emailTo, "email", "", "comma-separated recipients of the minutes (needs smtp settings)")
	fillCmd.Flags().StringVar(&fillFormat, "format", "docx", "template format: docx or pptx")
	fillCmd.Flags().StringVar(&fillPrompt, "prompt", "", "describe the document to generate")
	fillCmd.Flags().StringArrayVar(&fillValues, "set", nil, "explicit field value as KEY=VALUE (repeatable)")
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func cliSession() tool.Session {
	name := os.Getenv("USER")
	if name == "" {
		name = "cli"
	}
	return tool.Session{Username: name, IssuedAt: time.Now()}
}
