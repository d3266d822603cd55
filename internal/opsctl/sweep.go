package opsctl

import (
	"fmt"
	"io"

	"github.com/phacogen-next/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func sweepCmd(load EnvLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Chạy thủ công các tác vụ định kỳ",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "Gửi thông báo cho các lệnh quá hạn",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(load)
			if err != nil {
				return err
			}
			result, err := env.Container.SampleOrderService.SendOverdueNotifications(cmd.Context())
			if err != nil {
				return err
			}
			printOverdueResult(cmd.OutOrStdout(), result)
			return nil
		},
	})

	var dispatcherID uint
	autoCreate := &cobra.Command{
		Use:   "auto-create",
		Short: "Tạo lệnh tự động theo lịch của phòng khám",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(load)
			if err != nil {
				return err
			}
			var result *service.AutoCreateResult
			if dispatcherID > 0 {
				result, err = env.Container.SampleOrderService.AutoCreateOrders(cmd.Context(), dispatcherID)
			} else {
				result, err = env.Container.SampleOrderService.RunDailyAutoCreate(cmd.Context())
			}
			if err != nil {
				return err
			}
			printAutoCreateResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	autoCreate.Flags().UintVar(&dispatcherID, "dispatcher", 0, "ID người điều phối (mặc định: quản trị viên đầu tiên)")
	cmd.AddCommand(autoCreate)
	return cmd
}

func printOverdueResult(w io.Writer, result *service.OverdueResult) {
	if result == nil {
		return
	}
	fmt.Fprintf(w, "Lệnh quá hạn: %d, đã thông báo: %d, số thông báo: %d\n", result.Checked, result.Notified, result.Notifications)
	printErrors(w, result.Errors)
}

func printAutoCreateResult(w io.Writer, result *service.AutoCreateResult) {
	if result == nil {
		return
	}
	color.New(color.FgGreen).Fprintf(w, "Đã tạo: %d", result.Created)
	fmt.Fprintf(w, ", bỏ qua: %d\n", result.Skipped)
	printErrors(w, result.Errors)
}

func printErrors(w io.Writer, errs []string) {
	red := color.New(color.FgRed)
	for _, item := range errs {
		red.Fprintf(w, "  ! %s\n", item)
	}
}
