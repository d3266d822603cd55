package opsctl

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func ordersCmd(load EnvLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Tra cứu lệnh thu mẫu",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "history <code>",
		Short: "In lịch sử trạng thái của một lệnh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(load)
			if err != nil {
				return err
			}
			svc := env.Container.SampleOrderService
			order, err := svc.GetByCode(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			entries, err := svc.History(cmd.Context(), order.ID)
			if err != nil {
				return err
			}
			printOrderHistory(cmd.OutOrStdout(), order, entries, env.Config.Order.Location())
			return nil
		},
	})
	return cmd
}

func printOrderHistory(w io.Writer, order *models.SampleOrder, entries []models.SampleOrderHistory, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	color.New(color.Bold).Fprintf(w, "%s", order.Code)
	fmt.Fprintf(w, " [%s]\n", statusColor(order.Status).Sprint(service.StatusLabel(order.Status)))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THỜI GIAN\tTỪ\tĐẾN\tNGƯỜI THỰC HIỆN\tGHI CHÚ")
	for _, entry := range entries {
		previous := "-"
		if entry.PreviousStatus != nil {
			previous = *entry.PreviousStatus
		}
		actor := "hệ thống"
		if entry.ActorID != nil {
			actor = fmt.Sprintf("#%d", *entry.ActorID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			entry.CreatedAt.In(loc).Format("02/01/2006 15:04"),
			previous,
			entry.Status,
			actor,
			entry.Note,
		)
	}
	_ = tw.Flush()
}

func statusColor(status string) *color.Color {
	switch status {
	case constants.SampleOrderStatusCompleted, constants.SampleOrderStatusVerified:
		return color.New(color.FgGreen)
	case constants.SampleOrderStatusCancelled:
		return color.New(color.FgRed)
	case constants.SampleOrderStatusInProgress:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgYellow)
	}
}
