package http

import (
	"net/url"
	"strings"
	"time"

	"housetrend/internal/datasync"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// Flash kinds shown on the admin page.
const (
	flashSuccess = "success"
	flashWarning = "warning"
	flashInfo    = "info"
	flashError   = "error"
)

// saveMessage describes a save outcome to the operator.
func saveMessage(res datasync.SaveResult) (msg, kind string) {
	switch {
	case res.Remote:
		return "数据已成功保存到GitHub！", flashSuccess
	case res.Conflict() && res.Downloaded:
		return "GitHub上的文件已被其他人修改，保存失败，已下载本地文件。", flashWarning
	case res.Err != nil && res.Downloaded:
		return "GitHub保存失败，将下载本地文件。", flashWarning
	case res.Downloaded:
		return "数据已下载到本地，请手动上传到GitHub仓库的根目录。", flashInfo
	case res.Err != nil:
		return "保存失败：" + res.Err.Error(), flashError
	}
	return "已保存。", flashSuccess
}

// flashURL is the admin page showing msg.
func flashURL(msg, kind string) string {
	return "/admin?" + url.Values{"msg": {msg}, "kind": {kind}}.Encode()
}

// contentDisposition builds an attachment header with an ASCII fallback
// and the UTF-8 name.
func contentDisposition(fallback, name string) string {
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(name)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
