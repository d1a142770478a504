package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

// inputError 请求内容与已有数据不符（未知贡献者、非法日期），返回 400
type inputError struct {
	message string
	detail  []string
}

func (e *inputError) Error() string {
	return fmt.Sprintf("%s %s", e.message, strings.Join(e.detail, ", "))
}

// parseDate 解析 YYYY-MM-DD，拒绝不存在的日期（如 2023-02-30）
func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(model.SnapshotDateLayout, value)
	if err != nil {
		return time.Time{}, &inputError{
			message: "Invalid request body.",
			detail:  []string{fmt.Sprintf("date: %s is not a valid calendar date", value)},
		}
	}
	return date.UTC(), nil
}

// resolveContributors 用户名（不区分大小写）转换为 User ID，保持请求顺序并去重
//
// 任一用户名不存在时返回 inputError，列出全部未知用户名；
// 同一用户名匹配到多个用户（仅大小写不同的历史数据）时同样拒绝。
func resolveContributors(ctx context.Context, users storage.UserStore, usernames []string) ([]string, error) {
	if len(usernames) == 0 {
		return []string{}, nil
	}
	found, err := users.FindUsersByUsernames(ctx, usernames)
	if err != nil {
		return nil, fmt.Errorf("resolve contributors: %w", err)
	}
	byName := make(map[string]string, len(found))
	ambiguous := make(map[string]bool)
	for _, u := range found {
		key := strings.ToLower(u.Username)
		if id, ok := byName[key]; ok && id != u.ID {
			ambiguous[key] = true
		}
		byName[key] = u.ID
	}
	if len(ambiguous) > 0 {
		names := make([]string, 0, len(ambiguous))
		for name := range ambiguous {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, &inputError{message: "Ambiguous contributors.", detail: names}
	}

	ids := make([]string, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	var unknown []string
	for _, name := range usernames {
		id, ok := byName[strings.ToLower(name)]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(unknown) > 0 {
		return nil, &inputError{message: "Unknown contributors.", detail: unknown}
	}
	return ids, nil
}
