package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"commodex/internal/game"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	noticeTTL   = 4 * time.Second
	statusTTL   = 3 * time.Second
	frameEvery  = 250 * time.Millisecond
	updateQueue = 256
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("60")).Padding(0, 1)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	bankruptText = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)
)

func newPlayCmd() *cobra.Command {
	var (
		opts    localOptions
		every   time.Duration
		logPath string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a local session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logger := slog.New(slog.DiscardHandler)
			if logPath != "" {
				f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log: %w", err)
				}
				defer f.Close()
				logger = slog.New(slog.NewTextHandler(f, nil))
			}

			svc, rec, err := openLocal(ctx, opts, logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			updates := make(chan game.Update, updateQueue)
			svc.Subscribe(func(u game.Update) {
				select {
				case updates <- u:
				default:
				}
			})
			go game.RunScheduler(ctx, svc, every)

			p := tea.NewProgram(newPlayModel(ctx, svc, updates), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	bindLocalFlags(cmd, &opts)
	cmd.Flags().DurationVar(&every, "every", 3*time.Second, "wall-clock time per game day")
	cmd.Flags().StringVar(&logPath, "log", "", "write service logs to this file")
	return cmd
}

type playKeys struct {
	Up       key.Binding
	Down     key.Binding
	Buy      key.Binding
	BuyMax   key.Binding
	Sell     key.Binding
	SellAll  key.Binding
	Unlock   key.Binding
	Upgrade  key.Binding
	Demolish key.Binding
	Toggle   key.Binding
	Loan     key.Binding
	Repay    key.Binding
	Pause    key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultPlayKeys() playKeys {
	return playKeys{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Buy:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy 1")),
		BuyMax:   key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "buy max")),
		Sell:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell 1")),
		SellAll:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sell all")),
		Unlock:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "build")),
		Upgrade:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "upgrade")),
		Demolish: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "demolish")),
		Toggle:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "start/stop")),
		Loan:     key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "loan")),
		Repay:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repay")),
		Pause:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "new game")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k playKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Buy, k.Sell, k.Unlock, k.Loan, k.Pause, k.Help, k.Quit}
}

func (k playKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Buy, k.BuyMax, k.Sell, k.SellAll},
		{k.Unlock, k.Upgrade, k.Demolish, k.Toggle},
		{k.Loan, k.Repay},
		{k.Pause, k.Reset, k.Help, k.Quit},
	}
}

type (
	updateMsg game.Update
	frameMsg  time.Time
)

type shownNotice struct {
	game.Notice
	until time.Time
}

type playModel struct {
	ctx     context.Context
	svc     *game.Service
	updates <-chan game.Update

	dash    game.Dashboard
	market  table.Model
	keys    playKeys
	help    help.Model
	notices []shownNotice
	lastSeq uint64

	status      string
	statusStyle lipgloss.Style
	statusUntil time.Time
}

func newPlayModel(ctx context.Context, svc *game.Service, updates <-chan game.Update) playModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Commodity", Width: 16},
			{Title: "Price", Width: 12},
			{Title: "Change", Width: 9},
			{Title: "Owned", Width: 8},
			{Title: "Facility", Width: 16},
		}),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)
	keys := defaultPlayKeys()
	t.KeyMap = table.KeyMap{LineUp: keys.Up, LineDown: keys.Down}

	m := playModel{
		ctx:     ctx,
		svc:     svc,
		updates: updates,
		market:  t,
		keys:    keys,
		help:    help.New(),
	}
	m.setDashboard(svc.Dashboard())
	return m
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), nextFrame())
}

func waitForUpdate(ch <-chan game.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameEvery, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		height := msg.Height - 16
		if height < 4 {
			height = 4
		}
		m.market.SetHeight(height)
		return m, nil

	case updateMsg:
		if msg.Seq <= m.lastSeq {
			return m, waitForUpdate(m.updates)
		}
		m.lastSeq = msg.Seq
		switch msg.Type {
		case game.UpdateState:
			if d, ok := msg.Payload.(game.Dashboard); ok {
				m.setDashboard(d)
			}
		case game.UpdateNotice:
			if n, ok := msg.Payload.(game.Notice); ok {
				m.notices = append(m.notices, shownNotice{Notice: n, until: time.Now().Add(noticeTTL)})
			}
		}
		return m, waitForUpdate(m.updates)

	case frameMsg:
		m.prune(time.Time(msg))
		return m, nextFrame()

	case tea.KeyMsg:
		if handled, cmd := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.market, cmd = m.market.Update(msg)
	return m, cmd
}

func (m *playModel) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	id := m.selected()
	s := m.dash.State
	switch {
	case key.Matches(msg, m.keys.Quit):
		return true, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Pause):
		m.svc.SetPaused(!m.svc.Paused())
	case key.Matches(msg, m.keys.Reset):
		m.notices = nil
		m.svc.Reset(m.ctx)
		m.flash("New game started.", gainStyle)
	case key.Matches(msg, m.keys.Buy):
		m.do(game.Action{Kind: game.ActionTrade, Commodity: id, Quantity: 1}, "Bought 1 "+id)
	case key.Matches(msg, m.keys.BuyMax):
		qty := game.MaxAffordable(s, id)
		m.do(game.Action{Kind: game.ActionTrade, Commodity: id, Quantity: qty}, fmt.Sprintf("Bought %d %s", qty, id))
	case key.Matches(msg, m.keys.Sell):
		m.do(game.Action{Kind: game.ActionTrade, Commodity: id, Quantity: -1}, "Sold 1 "+id)
	case key.Matches(msg, m.keys.SellAll):
		qty := s.Inventory[id]
		m.do(game.Action{Kind: game.ActionTrade, Commodity: id, Quantity: -qty}, fmt.Sprintf("Sold %d %s", qty, id))
	case key.Matches(msg, m.keys.Unlock):
		m.do(game.Action{Kind: game.ActionUnlock, Commodity: id}, "Built "+id+" facility")
	case key.Matches(msg, m.keys.Upgrade):
		m.do(game.Action{Kind: game.ActionUpgrade, Commodity: id}, "Upgraded "+id+" facility")
	case key.Matches(msg, m.keys.Demolish):
		m.do(game.Action{Kind: game.ActionSellFacility, Commodity: id}, "Sold "+id+" facility")
	case key.Matches(msg, m.keys.Toggle):
		m.do(game.Action{Kind: game.ActionToggle, Commodity: id}, "Toggled "+id+" production")
	case key.Matches(msg, m.keys.Loan):
		menu := m.svc.Engine().Rules().LoanMenu
		idx := int(msg.String()[0] - '1')
		if idx < 0 || idx >= len(menu) {
			return true, nil
		}
		m.do(game.Action{Kind: game.ActionLoan, Amount: menu[idx]}, "Borrowed "+money(menu[idx]))
	case key.Matches(msg, m.keys.Repay):
		amount := math.Min(s.Cash, s.Debt)
		m.do(game.Action{Kind: game.ActionRepay, Amount: amount}, "Repaid "+money(amount))
	default:
		return false, nil
	}
	return true, nil
}

func (m *playModel) do(a game.Action, ok string) {
	// The new state arrives through the update stream.
	_, err := m.svc.Do(m.ctx, "", a)
	switch {
	case err == nil:
		m.flash(ok, gainStyle)
	case game.IsRejection(err):
		m.flash("Rejected: "+err.Error(), warnStyle)
	default:
		m.flash("Error: "+err.Error(), lossStyle)
	}
}

func (m *playModel) flash(text string, style lipgloss.Style) {
	m.status = text
	m.statusStyle = style
	m.statusUntil = time.Now().Add(statusTTL)
}

func (m *playModel) prune(now time.Time) {
	kept := m.notices[:0]
	for _, n := range m.notices {
		if now.Before(n.until) {
			kept = append(kept, n)
		}
	}
	m.notices = kept
	if m.status != "" && !now.Before(m.statusUntil) {
		m.status = ""
	}
}

func (m *playModel) selected() string {
	row := m.market.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func (m *playModel) setDashboard(d game.Dashboard) {
	m.dash = d
	levels := make(map[string]game.FacilityView, len(d.Facilities))
	for _, f := range d.Facilities {
		levels[f.Commodity] = f
	}
	rows := make([]table.Row, 0, len(d.Market))
	for _, mv := range d.Market {
		facility := "-"
		if f, ok := levels[mv.Commodity]; ok {
			state := "idle"
			if f.Producing {
				state = fmt.Sprintf("%.0f%%", f.Progress)
			}
			facility = fmt.Sprintf("L%d %s", f.Level, state)
		}
		name := mv.Name
		if mv.EventActive {
			name += " *"
		}
		rows = append(rows, table.Row{
			mv.Commodity,
			name,
			money(mv.Price),
			fmt.Sprintf("%+.2f%%", mv.ChangePercent),
			humanize.Comma(int64(mv.Owned)),
			facility,
		})
	}
	m.market.SetRows(rows)
}

func (m playModel) View() string {
	s := m.dash.State
	var b strings.Builder

	status := gainStyle.Render("running")
	switch {
	case s.Bankrupt:
		status = bankruptText.Render("BANKRUPT")
	case m.dash.Paused:
		status = warnStyle.Render("paused")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("COMMODEX  day %d  cycle %d/%d", s.Day, s.CycleProgress, game.CycleLength)))
	b.WriteString("  " + status + "\n\n")

	figures := []string{
		field("cash", signed(s.Cash)),
		field("debt", money(s.Debt)),
		field("net equity", signed(m.dash.NetEquity)),
		field("lifetime", signed(m.dash.LifetimeNet)),
		field("tax", fmt.Sprintf("%.1f%% on day %d", s.TaxRate*100, s.NextTaxDay)),
	}
	b.WriteString(strings.Join(figures, "   ") + "\n")
	if ev := s.ActiveEvent; ev != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%s: %s (%d days left)", ev.Name, ev.Description, ev.RemainingDays)) + "\n")
	}
	b.WriteString("\n")

	ledger := fmt.Sprintf("%s %s  %s %s  %s %s",
		labelStyle.Render("sales"), money(s.Ledger.Sales),
		labelStyle.Render("purchases"), money(s.Ledger.Purchases),
		labelStyle.Render("production"), money(s.Ledger.ProductionCost),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.market.View()),
		" ",
		panelStyle.Render(m.sidebar()),
	))
	b.WriteString("\n" + ledger + "\n")

	for _, n := range m.notices {
		b.WriteString(noticeStyle.Render(n.Message) + "\n")
	}
	if m.status != "" {
		b.WriteString(m.statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m playModel) sidebar() string {
	id := m.selected()
	s := m.dash.State
	lines := []string{titleStyle.Render(strings.ToUpper(id))}
	if c, ok := m.svc.Engine().Catalog().Lookup(id); ok {
		lines = append(lines,
			field("category", string(c.Category)),
			field("can buy", humanize.Comma(int64(game.MaxAffordable(s, id)))),
		)
		if f, built := s.Facilities[id]; built {
			lines = append(lines,
				field("level", fmt.Sprintf("%d", f.Level)),
				field("daily cost", money(game.DailyRunningCost(c, f.Level))),
				field("upgrade", money(game.UpgradeCost(c, f.Level))),
				field("sell for", money(game.SellValue(c, f.Level))),
			)
		} else {
			lines = append(lines, field("build", money(game.UnlockCost(c))))
		}
	}
	menu := m.svc.Engine().Rules().LoanMenu
	loans := make([]string, 0, len(menu))
	for i, v := range menu {
		loans = append(loans, fmt.Sprintf("%d) %s", i+1, humanize.Comma(int64(v))))
	}
	lines = append(lines, "", labelStyle.Render("loans"), strings.Join(loans, "  "))
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func signed(v float64) string {
	switch {
	case v > 0:
		return gainStyle.Render(money(v))
	case v < 0:
		return lossStyle.Render(money(v))
	default:
		return money(v)
	}
}
