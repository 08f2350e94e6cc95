package watchlist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/mirrorcow/pkg/logger"
)

// Target 跟单目标：key 为小写用户名或小写钱包地址，Size 为每单镜像买入的 USDC 金额
type Target struct {
	Key  string
	Size decimal.Decimal
}

// Store 只读跟单名单，加载后不再修改
type Store struct {
	targets map[string]Target
}

// ConfigError 名单配置错误（致命），带行号便于定位
type ConfigError struct {
	Row    int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("名单配置错误（第 %d 行）: %s", e.Row, e.Reason)
}

// LoadFile 从 CSV 文件加载名单（列: username,address,size，表头可选）
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开名单文件失败: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load 从 reader 加载名单。每行的 key 取用户名（非空时）否则取地址，
// 统一转小写；两者都为空或 size 非数字则返回 ConfigError。
// 同 key 的后行覆盖前行。
func Load(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	targets := make(map[string]Target)
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取名单 CSV 失败: %w", err)
		}
		row++

		// 跳过表头
		if row == 1 && isHeader(record) {
			continue
		}
		if len(record) < 3 {
			return nil, &ConfigError{Row: row, Reason: fmt.Sprintf("列数不足（需要 3 列，实际 %d 列）", len(record))}
		}

		username := strings.TrimSpace(record[0])
		address := strings.TrimSpace(record[1])
		sizeStr := strings.TrimSpace(record[2])

		key := strings.ToLower(username)
		if key == "" {
			key = strings.ToLower(address)
		}
		if key == "" {
			return nil, &ConfigError{Row: row, Reason: "用户名和地址均为空"}
		}

		size, err := decimal.NewFromString(sizeStr)
		if err != nil {
			return nil, &ConfigError{Row: row, Reason: fmt.Sprintf("金额无法解析: %q", sizeStr)}
		}

		if _, exists := targets[key]; exists {
			logger.Warnf("名单出现重复 key %s，后行覆盖前行", key)
		}
		targets[key] = Target{Key: key, Size: size}
		logger.Infof("加入跟单目标: %s（每单 %s USDC）", key, size.String())
	}

	return &Store{targets: targets}, nil
}

// Lookup 按小写 key 查找目标
func (s *Store) Lookup(key string) (Target, bool) {
	t, ok := s.targets[strings.ToLower(key)]
	return t, ok
}

// Len 名单条目数
func (s *Store) Len() int {
	return len(s.targets)
}

// Keys 返回全部 key（无序）
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.targets))
	for k := range s.targets {
		keys = append(keys, k)
	}
	return keys
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "username" || first == "name" || first == "user"
}
