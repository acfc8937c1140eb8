package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"
)

const helpText = `Commands:
/team <id> — team evaluation summary
/form <id> — per-criterion form summary
/user <id> — user evaluation summary
/token <instructor> — issue or show an API token (admins)
/revoke <instructor> — revoke an API token (admins)`

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	var reply string
	switch msg.Command() {
	case "start", "help":
		reply = helpText
	case "team":
		reply = b.teamSummary(msg.CommandArguments())
	case "form":
		reply = b.formSummary(msg.CommandArguments())
	case "user":
		reply = b.userSummary(msg.CommandArguments())
	case "token":
		reply = b.issueToken(msg)
	case "revoke":
		reply = b.revokeToken(msg)
	default:
		reply = "Unknown command, try /help"
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		logger.Error.Printf("Failed to send reply: %v", err)
	}
}

func parseArgID(args string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(args), 10, 64)
}

func (b *Bot) teamSummary(args string) string {
	id, err := parseArgID(args)
	if err != nil {
		return "Usage: /team <id>"
	}

	stats, err := b.reporter.TeamReport(id)
	if err != nil {
		logger.Error.Printf("Failed to build team report for %d: %v", id, err)
		return fmt.Sprintf("No report for team %d", id)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Team %s: %d evaluations, average %.2f\n", stats.Team.Name, stats.TotalEvaluations, stats.AverageScore)
	for _, m := range stats.Members {
		fmt.Fprintf(&sb, "  %s: %d received, average %.2f\n", m.Member.Name, m.EvaluationsReceived, m.AverageScore)
	}
	return sb.String()
}

func (b *Bot) formSummary(args string) string {
	id, err := parseArgID(args)
	if err != nil {
		return "Usage: /form <id>"
	}

	stats, err := b.reporter.FormReport(id)
	if err != nil {
		logger.Error.Printf("Failed to build form report for %d: %v", id, err)
		return fmt.Sprintf("No report for form %d", id)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Form %s: %d evaluations\n", stats.Form.Title, stats.TotalEvaluations)
	for _, c := range stats.Criteria {
		fmt.Fprintf(&sb, "  %s: %d responses, avg %.2f (min %d, max %d)\n",
			c.Criterion.Text, c.TotalResponses, c.AverageScore, c.MinScore, c.MaxScore)
	}
	return sb.String()
}

func (b *Bot) userSummary(args string) string {
	id, err := parseArgID(args)
	if err != nil {
		return "Usage: /user <id>"
	}

	stats, err := b.reporter.UserReport(id)
	if err != nil {
		logger.Error.Printf("Failed to build user report for %d: %v", id, err)
		return fmt.Sprintf("No report for user %d", id)
	}

	return fmt.Sprintf("%s: %d teams, %d received / %d given, average received %.2f",
		stats.User.Name, stats.TeamsCount, stats.EvaluationsReceived, stats.EvaluationsGiven, stats.AverageScoreReceived)
}

func (b *Bot) issueToken(msg *tgbotapi.Message) string {
	if !b.admins[msg.From.ID] {
		return "Admins only"
	}
	if b.tokens == nil {
		return "Token storage is not configured"
	}

	instructor := strings.TrimSpace(msg.CommandArguments())
	if instructor == "" {
		return "Usage: /token <instructor>"
	}

	info, isNew, err := b.tokens.FetchOrCreateToken(context.Background(), instructor)
	if err != nil {
		logger.Error.Printf("Failed to issue token for %s: %v", instructor, err)
		return "Failed to issue token"
	}

	if isNew {
		return fmt.Sprintf("New token for %s: %s", instructor, info.Token)
	}
	return fmt.Sprintf("Token for %s: %s (%d requests)", instructor, info.Token, info.RequestCount)
}

func (b *Bot) revokeToken(msg *tgbotapi.Message) string {
	if !b.admins[msg.From.ID] {
		return "Admins only"
	}
	if b.tokens == nil {
		return "Token storage is not configured"
	}

	instructor := strings.TrimSpace(msg.CommandArguments())
	if instructor == "" {
		return "Usage: /revoke <instructor>"
	}

	if err := b.tokens.RevokeToken(context.Background(), instructor); err != nil {
		logger.Error.Printf("Failed to revoke token for %s: %v", instructor, err)
		return "Failed to revoke token"
	}
	return fmt.Sprintf("Token for %s revoked", instructor)
}
