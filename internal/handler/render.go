package handler

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// embed renders a bold title over a body, a lightweight Telegram-HTML
// stand-in for rich embeds.
func embed(title, body string) string {
	return "<b>" + title + "</b>\n" + body
}

// formatXu groups digits by thousands: 1234567 -> 1,234,567.
func formatXu(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// mention renders a tappable user mention.
func mention(userID, name string) string {
	if name == "" {
		name = userID
	}
	return fmt.Sprintf(`<a href="tg://user?id=%s">%s</a>`, userID, html.EscapeString(name))
}

func itemLabel(item domain.ItemStack) string {
	label := "<b>" + html.EscapeString(item.Name) + "</b>"
	if item.Emoji != "" {
		label = item.Emoji + " " + label
	}
	return label
}

// errorText maps the expected domain outcomes to the user-facing replies.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "❌ Bạn không đủ xu."
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return "❌ Số thứ tự nhẫn không hợp lệ."
	case errors.Is(err, domain.ErrItemNotFound):
		return "❌ Không tìm thấy nhẫn này."
	case errors.Is(err, domain.ErrSelfTarget):
		return "❌ Bạn không thể tự chọn chính mình."
	case errors.Is(err, domain.ErrProposalPending):
		return "❌ Đang có một lời đề nghị chờ phản hồi."
	case errors.Is(err, domain.ErrNoPendingProposal):
		return "❌ Không có lời đề nghị nào đang chờ bạn."
	case errors.Is(err, domain.ErrNotMarried):
		return "❌ Bạn chưa kết hôn."
	case errors.Is(err, domain.ErrAlreadyMarried):
		return "❌ Một trong hai người đã kết hôn rồi."
	case errors.Is(err, domain.ErrCooldownActive):
		return "⏰ Bạn cần chờ thêm trước khi cộng điểm tiếp."
	case errors.Is(err, domain.ErrAlreadySet):
		return "❌ Trường này đã được đặt, hãy xóa trước."
	case errors.Is(err, domain.ErrNotSet):
		return "❌ Không có nội dung nào để xóa."
	case errors.Is(err, domain.ErrInvalidImageURL):
		return "❌ Vui lòng cung cấp URL hình ảnh hợp lệ."
	case errors.Is(err, domain.ErrEmptyCaption):
		return "❌ Vui lòng nhập nội dung caption."
	case errors.Is(err, domain.ErrUnauthorized):
		return "❌ Bạn không có quyền sử dụng lệnh này."
	default:
		return "❌ Có lỗi xảy ra, vui lòng thử lại sau."
	}
}
