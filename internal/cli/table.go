package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// renderSweepTable renders parameter rows as a bordered terminal table.
func renderSweepTable(rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Radius", "Angle", "Density", "Configs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			switch col {
			case 0:
				return StyleHighlight.PaddingRight(1)
			case 3:
				return StyleDim
			default:
				return StyleValue.PaddingRight(1)
			}
		})

	return t.Render()
}
