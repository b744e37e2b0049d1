package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studrail/trackforge/pkg/params"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// RadiusListModel - Interactive radius selection
// =============================================================================

// RadiusListModel is the bubbletea model for picking radii from the
// standard sweep table. Space toggles a radius, enter confirms, a/n select
// all/none.
type RadiusListModel struct {
	Rows      []params.Row
	Cursor    int
	Checked   map[int]bool
	Confirmed bool
}

// NewRadiusListModel creates a radius picker over the standard table.
func NewRadiusListModel() RadiusListModel {
	return RadiusListModel{
		Rows:    params.Table(),
		Checked: make(map[int]bool),
	}
}

func (m RadiusListModel) Init() tea.Cmd {
	return nil
}

func (m RadiusListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
			}
		case " ":
			radius := m.Rows[m.Cursor].Radius
			m.Checked[radius] = !m.Checked[radius]
		case "a":
			for _, row := range m.Rows {
				m.Checked[row.Radius] = true
			}
		case "n":
			m.Checked = make(map[int]bool)
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m RadiusListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Radii"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  n none  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	for i, row := range m.Rows {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		check := "[ ]"
		if m.Checked[row.Radius] {
			check = "[x]"
		}

		line := fmt.Sprintf("%s%s R%-4d %6s°  density %d",
			cursor, check, row.Radius,
			strconv.FormatFloat(row.Angle, 'f', -1, 64), row.Density)

		style := listNormalStyle
		if i == m.Cursor {
			style = listSelectedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	count := 0
	for _, on := range m.Checked {
		if on {
			count++
		}
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%d selected", count)))
	b.WriteString("\n")

	return b.String()
}

// Selected returns the checked radii in sweep order.
func (m RadiusListModel) Selected() []int {
	radii := make([]int, 0, len(m.Checked))
	for radius, on := range m.Checked {
		if on {
			radii = append(radii, radius)
		}
	}
	sort.Ints(radii)
	return radii
}

// pickRadii runs the interactive picker. It fails on non-terminal stdin,
// which callers translate into "pass -r".
func pickRadii() ([]int, error) {
	p := tea.NewProgram(NewRadiusListModel())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(RadiusListModel)
	if !ok || !m.Confirmed {
		return nil, nil
	}
	return m.Selected(), nil
}
