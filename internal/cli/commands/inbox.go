package commands

import (
	"context"
	"fmt"

	"MediaKeeper/internal/config"
)

type inboxCmd struct{}

func (inboxCmd) Name() string        { return "inbox" }
func (inboxCmd) Description() string { return "Показать входящие уведомления о шаринге" }
func (inboxCmd) Usage() string       { return "inbox" }

func (inboxCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	c, _, _, err := session(cfg)
	if err != nil {
		return err
	}
	var resp struct {
		Entries []struct {
			ID        string `json:"id"`
			LicenseID string `json:"license_id"`
			SharedBy  string `json:"shared_by"`
			Message   string `json:"message"`
			Status    string `json:"status"`
			CreatedAt string `json:"created_at"`
		} `json:"entries"`
	}
	if _, err := c.GetJSON("/api/inbox", &resp); err != nil {
		return err
	}
	if len(resp.Entries) == 0 {
		fmt.Fprintln(Out, "Входящих нет")
		return nil
	}
	for _, e := range resp.Entries {
		marker := " "
		if e.Status == "unread" {
			marker = "*"
		}
		fmt.Fprintf(Out, "%s %s  от %s  лицензия %s  %s\n", marker, e.ID, e.SharedBy, e.LicenseID, e.CreatedAt)
		if e.Message != "" {
			fmt.Fprintf(Out, "    %s\n", e.Message)
		}
	}
	return nil
}

type inboxReadCmd struct{}

func (inboxReadCmd) Name() string        { return "inbox-read" }
func (inboxReadCmd) Description() string { return "Отметить уведомление прочитанным" }
func (inboxReadCmd) Usage() string       { return "inbox-read <entry-id>" }

func (inboxReadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	c, _, _, err := session(cfg)
	if err != nil {
		return err
	}
	if _, err := c.PostJSON("/api/inbox/"+args[0]+"/read", struct{}{}, nil); err != nil {
		return err
	}
	fmt.Fprintln(Out, "✓ Прочитано")
	return nil
}

func init() {
	RegisterCmd(inboxCmd{})
	RegisterCmd(inboxReadCmd{})
}
