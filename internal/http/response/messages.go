package response

import "fmt"

// messages 错误消息表，key 与前端约定保持一致
var messages = map[string]string{
	"error.bad_request":              "Yêu cầu không hợp lệ",
	"error.unauthorized":             "Chưa đăng nhập",
	"error.forbidden":                "Không có quyền thực hiện thao tác này",
	"error.internal":                 "Lỗi hệ thống",
	"error.jwt_secret_missing":       "Chưa cấu hình khóa JWT",
	"error.auth_header_missing":      "Thiếu tiêu đề Authorization",
	"error.auth_header_invalid":      "Tiêu đề Authorization không hợp lệ",
	"error.token_invalid":            "Token không hợp lệ",
	"error.token_revoked":            "Token đã bị thu hồi",
	"error.user_disabled":            "Tài khoản đã bị vô hiệu hóa",
	"error.login_invalid":            "Sai tên đăng nhập hoặc mật khẩu",
	"error.rate_limited":             "Thao tác quá nhanh, vui lòng thử lại sau %d giây",
	"error.rate_limit_unavailable":   "Dịch vụ giới hạn tần suất tạm thời không khả dụng",
	"error.order_not_found":          "Không tìm thấy lệnh thu mẫu",
	"error.order_invalid":            "Dữ liệu lệnh thu mẫu không hợp lệ",
	"error.order_conflict":           "Lệnh đã được cập nhật bởi người khác, vui lòng tải lại",
	"error.order_fetch_failed":       "Không thể tải lệnh thu mẫu",
	"error.order_update_failed":      "Không thể cập nhật lệnh thu mẫu",
	"error.order_delete_failed":      "Không thể xóa lệnh thu mẫu",
	"error.order_sweep_failed":       "Không thể chạy kiểm tra lệnh",
	"error.notification_not_found":   "Không tìm thấy thông báo",
	"error.notification_failed":      "Không thể xử lý thông báo",
	"error.no_admin_available":       "Không có quản trị viên hoạt động",
	"error.login_log_failed":         "Không thể tải lịch sử đăng nhập",
	"error.staff_id_invalid":         "Mã nhân viên không hợp lệ",
	"error.staff_id_type_invalid":    "Kiểu mã nhân viên không hợp lệ",
}

// Message 根据 key 取错误消息，未登记时原样返回 key
func Message(key string, args ...interface{}) string {
	text, ok := messages[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}
