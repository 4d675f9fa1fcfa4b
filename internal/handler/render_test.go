package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tcaothien/allbotv3/internal/domain"
)

func TestFormatXu(t *testing.T) {
	assert.Equal(t, "0", formatXu(0))
	assert.Equal(t, "999", formatXu(999))
	assert.Equal(t, "1,000", formatXu(1000))
	assert.Equal(t, "1,234,567", formatXu(1234567))
	assert.Equal(t, "99,999,999", formatXu(99999999))
	assert.Equal(t, "-20,000", formatXu(-20000))
}

func TestMention_EscapesName(t *testing.T) {
	got := mention("123", "<b>")
	assert.Contains(t, got, "tg://user?id=123")
	assert.Contains(t, got, "&lt;b&gt;")
}

func TestErrorText(t *testing.T) {
	assert.Contains(t, errorText(domain.ErrInsufficientFunds), "không đủ xu")
	assert.Contains(t, errorText(domain.ErrAlreadyMarried), "đã kết hôn")
	assert.Contains(t, errorText(assert.AnError), "Có lỗi xảy ra")
}
