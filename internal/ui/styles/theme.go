// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// SIDEBAR (CONVERSATION LIST) STYLES
	// ==========================================================================

	Sidebar              lipgloss.Style
	SidebarTitle         lipgloss.Style
	ConvItem             lipgloss.Style
	ConvItemSelected     lipgloss.Style
	ConvTitle            lipgloss.Style
	ConvMeta             lipgloss.Style
	PinMarker            lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	StreamingText   lipgloss.Style
	MessageMeta     lipgloss.Style

	// ==========================================================================
	// EVIDENCE STYLES
	// ==========================================================================

	EvidenceBox       lipgloss.Style
	EvidenceHeader    lipgloss.Style
	EvidenceSource    lipgloss.Style
	EvidenceText      lipgloss.Style
	VerdictSupported  lipgloss.Style
	VerdictPartial    lipgloss.Style
	VerdictUnsupported lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ToggleOn     lipgloss.Style
	ToggleOff    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// NOTICE STYLES
	// ==========================================================================

	ToastTransient  lipgloss.Style
	ToastPersistent lipgloss.Style
	ToastWarning    lipgloss.Style

	// ==========================================================================
	// CODE BLOCK STYLES
	// ==========================================================================

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style

	// ==========================================================================
	// DIALOG STYLES
	// ==========================================================================

	DialogBox          lipgloss.Style
	DialogTitle        lipgloss.Style
	DialogButton       lipgloss.Style
	DialogButtonActive lipgloss.Style
}

// NewTheme creates a theme for the given mode: "dark", "light", or "auto".
// Auto detects the terminal background.
func NewTheme(mode string) *Theme {
	isDark := true
	switch mode {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ConvItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.ConvItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		Padding(0, 1)

	t.ConvTitle = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ConvMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.PinMarker = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 2).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 2).
		MarginRight(4)

	t.StreamingText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.MessageMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Evidence
	t.EvidenceBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(2).
		MarginLeft(2)

	t.EvidenceHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.EvidenceSource = lipgloss.NewStyle().
		Foreground(Cyan)

	t.EvidenceText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.VerdictSupported = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.VerdictPartial = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.VerdictUnsupported = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.ToggleOn = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.ToggleOff = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Spinner
	t.Spinner = lipgloss.NewStyle().
		Foreground(Indigo)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Toasts
	t.ToastTransient = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.ToastPersistent = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Bold(true).
		Padding(0, 1)

	t.ToastWarning = lipgloss.NewStyle().
		Foreground(Amber).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 1)

	// Code blocks
	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(Cyan).
		Background(SurfaceDim).
		Bold(true).
		Padding(0, 1)

	// Dialogs
	t.DialogBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(1, 2)

	t.DialogTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.DialogButton = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 2)

	t.DialogButtonActive = lipgloss.NewStyle().
		Foreground(Surface).
		Background(Indigo).
		Bold(true).
		Padding(0, 2)
}

// SetSize updates the theme's layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode describes how much horizontal room the terminal offers.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota
	LayoutNormal
	LayoutWide
)

// GetLayoutMode returns the layout mode for the current width. The sidebar
// is hidden entirely in narrow mode.
func (t *Theme) GetLayoutMode() LayoutMode {
	switch {
	case t.Width < 80:
		return LayoutNarrow
	case t.Width < 120:
		return LayoutNormal
	default:
		return LayoutWide
	}
}
