package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/pipeline"
)

var (
	queryUserID string
	queryLat    float64
	queryLng    float64
)

var (
	replyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36")).PaddingLeft(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
)

var queryCmd = &cobra.Command{
	Use:   "query [message]",
	Short: "Ask the assistant one question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()

		req := pipeline.Request{
			UserID:  queryUserID,
			Message: strings.Join(args, " "),
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			req.Location = &classifier.Location{Latitude: queryLat, Longitude: queryLng}
		}

		resp, err := a.pipe.Process(context.Background(), req)
		if err != nil {
			return err
		}

		printResponse(resp)
		return nil
	},
}

func printResponse(resp *pipeline.Response) {
	fmt.Println(replyStyle.Render(resp.Reply))
	fmt.Println(labelStyle.Render(fmt.Sprintf("intent=%s sentiment=%s confidence=%.2f session=%s",
		resp.Intent, resp.Sentiment, resp.Confidence, resp.SessionID)))

	for _, p := range resp.Products {
		card := fmt.Sprintf("%s\n%s  RM%.2f", p.Name, p.Category, p.Price)
		if len(p.Sizes) > 0 {
			card += "\nSizes: " + strings.Join(p.Sizes, ", ")
		}
		fmt.Println(cardStyle.Render(card))
	}

	for _, s := range resp.Stores {
		card := fmt.Sprintf("%s at %s, %s\n%s", s.Name, s.MallName, s.City, s.Hours)
		if s.DistanceKm > 0 {
			card += fmt.Sprintf("\n%.1f km away", s.DistanceKm)
		}
		fmt.Println(cardStyle.Render(card))
	}

	if resp.LoyaltyNote != "" {
		fmt.Println(noticeStyle.Render(resp.LoyaltyNote))
	}
	if resp.Fallback {
		fmt.Println(noticeStyle.Render("(fallback reply, the chat model was unavailable)"))
	}
}

func init() {
	queryCmd.Flags().StringVarP(&queryUserID, "user", "u", "", "user id for personalised answers")
	queryCmd.Flags().Float64Var(&queryLat, "lat", 0, "latitude for nearby-store answers")
	queryCmd.Flags().Float64Var(&queryLng, "lng", 0, "longitude for nearby-store answers")
	rootCmd.AddCommand(queryCmd)
}
