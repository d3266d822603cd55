package service

import (
	"strings"

	"github.com/phacogen-next/internal/constants"
)

// sampleOrderTransitions 允许的状态流转
var sampleOrderTransitions = map[string][]string{
	constants.SampleOrderStatusAwaitingDispatch: {
		constants.SampleOrderStatusAwaitingAcceptance,
		constants.SampleOrderStatusInProgress,
		constants.SampleOrderStatusCancelled,
	},
	constants.SampleOrderStatusAwaitingAcceptance: {
		constants.SampleOrderStatusInProgress,
		constants.SampleOrderStatusAwaitingDispatch,
		constants.SampleOrderStatusCancelled,
	},
	constants.SampleOrderStatusInProgress: {
		constants.SampleOrderStatusCompleted,
		constants.SampleOrderStatusAwaitingDispatch,
		constants.SampleOrderStatusCancelled,
	},
	constants.SampleOrderStatusCompleted: {
		constants.SampleOrderStatusVerified,
		constants.SampleOrderStatusCancelled,
	},
	constants.SampleOrderStatusVerified: {},
	constants.SampleOrderStatusCancelled: {},
}

// assignableStatuses 可以（重新）指派员工的状态
var assignableStatuses = map[string]struct{}{
	constants.SampleOrderStatusAwaitingDispatch:   {},
	constants.SampleOrderStatusAwaitingAcceptance: {},
	constants.SampleOrderStatusInProgress:         {},
}

func normalizeSampleOrderStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// isKnownSampleOrderStatus 判断状态值是否合法
func isKnownSampleOrderStatus(status string) bool {
	_, ok := sampleOrderTransitions[status]
	return ok
}

// isTransitionAllowed 判断 from -> to 是否允许，自身流转视为不允许
func isTransitionAllowed(from, to string) bool {
	targets, ok := sampleOrderTransitions[from]
	if !ok || from == to {
		return false
	}
	for _, target := range targets {
		if target == to {
			return true
		}
	}
	return false
}

func isTerminalSampleOrderStatus(status string) bool {
	return status == constants.SampleOrderStatusVerified || status == constants.SampleOrderStatusCancelled
}

func isAssignableStatus(status string) bool {
	_, ok := assignableStatuses[status]
	return ok
}

// terminalSampleOrderStatuses 终态列表（超时巡检排除）
func terminalSampleOrderStatuses() []string {
	return []string{constants.SampleOrderStatusVerified, constants.SampleOrderStatusCancelled}
}

// sampleOrderStatusNote 状态流转的默认历史备注
func sampleOrderStatusNote(status string) string {
	switch status {
	case constants.SampleOrderStatusAwaitingDispatch:
		return "Chuyển về chờ điều phối"
	case constants.SampleOrderStatusAwaitingAcceptance:
		return "Chờ nhân viên nhận lệnh"
	case constants.SampleOrderStatusInProgress:
		return "Bắt đầu thực hiện lệnh"
	case constants.SampleOrderStatusCompleted:
		return "Hoàn thành thu mẫu"
	case constants.SampleOrderStatusVerified:
		return "Hoàn thành kiểm tra"
	case constants.SampleOrderStatusCancelled:
		return "Hủy lệnh"
	default:
		return "Cập nhật trạng thái"
	}
}

// sampleOrderStatusLabel 状态的可读名称（通知文案使用）
func sampleOrderStatusLabel(status string) string {
	switch status {
	case constants.SampleOrderStatusAwaitingDispatch:
		return "Chờ điều phối"
	case constants.SampleOrderStatusAwaitingAcceptance:
		return "Chờ nhận lệnh"
	case constants.SampleOrderStatusInProgress:
		return "Đang thực hiện"
	case constants.SampleOrderStatusCompleted:
		return "Hoàn thành"
	case constants.SampleOrderStatusVerified:
		return "Hoàn thành kiểm tra"
	case constants.SampleOrderStatusCancelled:
		return "Đã hủy"
	default:
		return status
	}
}

// StatusLabel 状态的可读名称
func StatusLabel(status string) string {
	return sampleOrderStatusLabel(status)
}

const (
	historyNoteCreated  = "Tạo lệnh thu mẫu"
	historyNoteAssigned = "Điều phối lệnh cho nhân viên"
)
