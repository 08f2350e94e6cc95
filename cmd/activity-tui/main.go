// activity-tui 只读实时成交监控：订阅活动流并滚动展示最新成交，
// 名单内账户高亮。不做任何交易。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	clob "github.com/betbot/mirrorcow/clob/client"
	"github.com/betbot/mirrorcow/internal/feed"
	"github.com/betbot/mirrorcow/internal/matcher"
	"github.com/betbot/mirrorcow/internal/watchlist"
	"github.com/betbot/mirrorcow/pkg/logger"
)

const maxRows = 30

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")) // 绿色

	sellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // 红色

	watchedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // 黄色高亮

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

// tradeRow 展示用的一行成交
type tradeRow struct {
	when    time.Time
	name    string
	side    string
	title   string
	outcome string
	price   float64
	size    float64
	watched bool
}

// tradeMsg 新成交消息
type tradeMsg tradeRow

// feedClosedMsg 活动流终止
type feedClosedMsg struct{}

// tickMsg 定时刷新
type tickMsg time.Time

// marketFilter 限定展示的市场，key 为 clob token id；空过滤器放行全部
type marketFilter map[string]struct{}

func (f marketFilter) allows(asset string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[asset]
	return ok
}

// buildMarketFilter 把 -markets 里的 slug 经 Gamma 解析为 token id 集合
func buildMarketFilter(ctx context.Context, slugsCSV string) (marketFilter, error) {
	var slugs []string
	for _, s := range strings.Split(slugsCSV, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}
	if len(slugs) == 0 {
		return nil, nil
	}

	markets, err := clob.FetchMultipleMarketsFromGamma(ctx, slugs, 200)
	if err != nil {
		return nil, err
	}
	filter := marketFilter{}
	for _, m := range markets {
		ids, err := m.TokenIDs()
		if err != nil {
			logger.Warnf("解析市场 %s 的 token id 失败: %v", m.Slug, err)
			continue
		}
		for _, id := range ids {
			filter[id] = struct{}{}
		}
	}
	if len(filter) == 0 {
		return nil, fmt.Errorf("没有解析出任何市场: %s", slugsCSV)
	}
	return filter, nil
}

// titleCache 按 conditionId 缓存市场标题；活动流事件缺 title 时回源 Gamma
type titleCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newTitleCache() *titleCache {
	return &titleCache{m: make(map[string]string)}
}

func (c *titleCache) resolve(ev matcher.TradeEvent) string {
	if ev.Title != "" || ev.ConditionID == "" {
		return ev.Title
	}

	c.mu.Lock()
	title, hit := c.m[ev.ConditionID]
	c.mu.Unlock()
	if hit {
		return title
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if market, err := clob.FetchMarketByConditionID(ctx, ev.ConditionID); err == nil {
		title = market.Question
	}
	// 查询失败也落缓存，避免对同一市场反复回源
	c.mu.Lock()
	c.m[ev.ConditionID] = title
	c.mu.Unlock()
	return title
}

type model struct {
	rows      []tradeRow
	total     int
	watchHits int
	closed    bool
	width     int

	frames <-chan []byte
	store  *watchlist.Store
	filter marketFilter
	titles *titleCache
	cancel context.CancelFunc
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForTrade(m.frames, m.store, m.filter, m.titles))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tradeMsg:
		m.total++
		if msg.watched {
			m.watchHits++
		}
		m.rows = append([]tradeRow{tradeRow(msg)}, m.rows...)
		if len(m.rows) > maxRows {
			m.rows = m.rows[:maxRows]
		}
		return m, waitForTrade(m.frames, m.store, m.filter, m.titles)

	case feedClosedMsg:
		m.closed = true

	case tickMsg:
		return m, tickCmd()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	status := fmt.Sprintf("Polymarket 实时成交  共 %d 条  名单命中 %d", m.total, m.watchHits)
	if m.closed {
		status += "  [活动流已断开]"
	}
	b.WriteString(headerStyle.Render(status))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("等待成交 ..."))
	}
	for _, row := range m.rows {
		line := fmt.Sprintf("%s  %-4s %-18s %-34s %-8s %7.3f x %-10.2f",
			row.when.Format("15:04:05"),
			row.side,
			truncate(row.name, 18),
			truncate(row.title, 34),
			truncate(row.outcome, 8),
			row.price,
			row.size,
		)
		switch {
		case row.watched:
			line = watchedStyle.Render(line + "  ◀ 名单")
		case row.side == "Buy":
			line = buyStyle.Render(line)
		default:
			line = sellStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q 退出"))
	return borderStyle.Render(b.String())
}

// truncate 按字符截断，多字节名称不能剖在 rune 中间
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForTrade 阻塞等待下一条活动流帧并转为展示行；
// 过滤器拦下的市场直接跳过
func waitForTrade(frames <-chan []byte, store *watchlist.Store, filter marketFilter, titles *titleCache) tea.Cmd {
	return func() tea.Msg {
		for {
			raw, ok := <-frames
			if !ok {
				return feedClosedMsg{}
			}
			var env struct {
				Payload matcher.TradeEvent `json:"payload"`
			}
			if err := json.Unmarshal(raw, &env); err != nil {
				continue
			}
			ev := env.Payload
			if ev.Side == "" {
				continue
			}
			if !filter.allows(ev.Asset) {
				continue
			}
			watched := false
			if store != nil {
				if _, ok := store.Lookup(ev.Name); ok {
					watched = true
				} else if _, ok := store.Lookup(ev.ProxyWallet); ok {
					watched = true
				}
			}
			title := ev.Title
			if titles != nil {
				title = titles.resolve(ev)
			}
			return tradeMsg(tradeRow{
				when:    time.Now(),
				name:    ev.Name,
				side:    ev.Side,
				title:   title,
				outcome: ev.Outcome,
				price:   ev.Price,
				size:    ev.Size,
				watched: watched,
			})
		}
	}
}

func main() {
	wsURL := flag.String("ws", "", "活动流 WebSocket 地址（默认官方端点）")
	targetsPath := flag.String("targets", "", "跟单名单 CSV（可选，用于高亮）")
	marketSlugs := flag.String("markets", "", "只看这些市场，逗号分隔的 slug（经 Gamma 解析）")
	flag.Parse()

	// TUI 模式日志只进文件
	if err := logger.Init(logger.Config{Level: "info", OutputFile: "logs/activity-tui.log"}); err != nil {
		fmt.Fprintln(os.Stderr, "初始化日志失败:", err)
		os.Exit(1)
	}

	var store *watchlist.Store
	if *targetsPath != "" {
		s, err := watchlist.LoadFile(*targetsPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "加载名单失败:", err)
			os.Exit(1)
		}
		store = s
	}

	ctx, cancel := context.WithCancel(context.Background())

	filter, err := buildMarketFilter(ctx, *marketSlugs)
	if err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "解析市场过滤失败:", err)
		os.Exit(1)
	}

	activity := feed.NewActivityClient(feed.Options{URL: *wsURL})
	if err := activity.Start(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "连接活动流失败:", err)
		os.Exit(1)
	}
	defer activity.Stop()

	m := model{
		frames: activity.Frames(),
		store:  store,
		filter: filter,
		titles: newTitleCache(),
		cancel: cancel,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "TUI 退出异常:", err)
		os.Exit(1)
	}
}
