package opsctl

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// SeedReport 初始化结果，Created/Existing 记录名称
type SeedReport struct {
	Created  []string
	Existing []string
}

func (r *SeedReport) track(name string, created bool) {
	if created {
		r.Created = append(r.Created, name)
		return
	}
	r.Existing = append(r.Existing, name)
}

func seedCmd(load EnvLoader) *cobra.Command {
	var (
		demo         bool
		demoPassword string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Khởi tạo vai trò, tài khoản quản trị và dữ liệu mẫu",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(load)
			if err != nil {
				return err
			}
			if err := models.InitDefaultAdmin(os.Getenv("PG_DEFAULT_ADMIN_USERNAME"), os.Getenv("PG_DEFAULT_ADMIN_PASSWORD")); err != nil {
				return fmt.Errorf("init default admin: %w", err)
			}
			if !demo {
				color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Đã khởi tạo vai trò và tài khoản quản trị")
				return nil
			}
			report, err := SeedDemoData(models.DB, env.Container.AuthService.HashPassword, demoPassword)
			if err != nil {
				return err
			}
			printSeedReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "tạo thêm nhân viên, phòng khám và nội dung công việc mẫu")
	cmd.Flags().StringVar(&demoPassword, "demo-password", "phacogen-demo", "mật khẩu cho tài khoản mẫu")
	return cmd
}

// SeedDemoData 写入演示数据，可重复执行
func SeedDemoData(db *gorm.DB, hash func(string) (string, error), password string) (*SeedReport, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if hash == nil {
		return nil, errors.New("password hasher is nil")
	}
	if err := models.EnsureDefaultRoles(db); err != nil {
		return nil, fmt.Errorf("ensure roles: %w", err)
	}
	report := &SeedReport{}
	passwordHash, err := hash(password)
	if err != nil {
		return nil, err
	}

	users := []struct {
		staffCode string
		username  string
		fullName  string
		role      string
	}{
		{"NV-DP01", "dieuphoi", "Trần Điều Phối", constants.RoleDispatcher},
		{"NV-TM01", "nhanvien", "Lê Thu Mẫu", constants.RoleStaff},
		{"NV-KT01", "kiemtra", "Phạm Kiểm Tra", constants.RoleAuditor},
	}
	var staffID uint
	for _, item := range users {
		var role models.Role
		if err := db.Where("name = ?", item.role).First(&role).Error; err != nil {
			return nil, fmt.Errorf("load role %s: %w", item.role, err)
		}
		user := models.User{
			StaffCode:    item.staffCode,
			Username:     item.username,
			PasswordHash: passwordHash,
			FullName:     item.fullName,
			RoleID:       role.ID,
			IsActive:     true,
		}
		result := db.Where("username = ?", item.username).FirstOrCreate(&user)
		if result.Error != nil {
			return nil, fmt.Errorf("seed user %s: %w", item.username, result.Error)
		}
		report.track("user:"+item.username, result.RowsAffected > 0)
		if item.role == constants.RoleStaff {
			staffID = user.ID
		}
	}

	workContent := models.WorkContent{Name: "Thu mẫu xét nghiệm", Description: "Nhận mẫu tại phòng khám và chuyển về phòng xét nghiệm"}
	result := db.Where("name = ?", workContent.Name).FirstOrCreate(&workContent)
	if result.Error != nil {
		return nil, fmt.Errorf("seed work content: %w", result.Error)
	}
	report.track("work_content:"+workContent.Name, result.RowsAffected > 0)

	clinic := models.Clinic{
		Code:            "PK-DEMO",
		Name:            "Phòng khám Đa khoa Demo",
		Email:           "demo-clinic@example.com",
		IsActive:        true,
		AutoCreate:      true,
		StaffInChargeID: &staffID,
		AutoRules: models.ClinicAutoRules{{
			Weekdays:      models.IntArray{1, 2, 3, 4, 5, 6},
			WorkContentID: workContent.ID,
			Note:          "Thu mẫu định kỳ buổi sáng",
			DueInHours:    6,
		}},
	}
	result = db.Where("code = ?", clinic.Code).FirstOrCreate(&clinic)
	if result.Error != nil {
		return nil, fmt.Errorf("seed clinic: %w", result.Error)
	}
	report.track("clinic:"+clinic.Code, result.RowsAffected > 0)
	return report, nil
}

func printSeedReport(w io.Writer, report *SeedReport) {
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)
	for _, name := range report.Created {
		green.Fprintf(w, "  + %s\n", name)
	}
	for _, name := range report.Existing {
		dim.Fprintf(w, "  = %s (đã tồn tại)\n", name)
	}
}
