package standalone

import (
	"fmt"
	"strings"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/rdb"
	"github.com/user-none/m64ui/session"
	"github.com/user-none/m64ui/standalone/style"
)

// Characters kept from the end of long paths in menu entries.
const menuPathChars = 40

// buildMainScreen lays out the menu columns above the ROM info panel.
func (a *App) buildMainScreen() *widget.Container {
	root := style.ScreenContainer()
	content := style.ScreenContentContainer([]bool{false, false, true})

	content.AddChild(style.Label(a.statusLine(), style.TextSecondary))

	menus := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewGridLayout(
			widget.GridLayoutOpts.Columns(3),
			widget.GridLayoutOpts.Stretch([]bool{true, true, true}, []bool{false}),
			widget.GridLayoutOpts.Spacing(style.DefaultSpacing, 0),
		)),
	)
	menus.AddChild(a.buildFileMenu())
	menus.AddChild(a.buildEmulationMenu())
	menus.AddChild(a.buildSettingsMenu())
	content.AddChild(menus)

	content.AddChild(style.ScrollableContainer(a.buildInfoPanel()))

	root.AddChild(content)
	return root
}

// statusLine summarizes what the core is doing.
func (a *App) statusLine() string {
	switch {
	case a.stopping:
		return "Stopping..."
	case a.running && a.info != nil:
		if g := a.gameEntry(); g != nil {
			return "Running " + rdb.DisplayName(g.Name)
		}
		return "Running " + a.info.ROMName
	case a.running:
		return "Starting..."
	}
	return "Idle"
}

// action is a menu entry that runs fn when clicked. Disabled entries are
// drawn greyed out and ignore clicks.
func action(label string, enabled bool, fn func()) *widget.Button {
	b := style.TextButton(label, style.ButtonPaddingSmall, func(*widget.ButtonClickedEventArgs) {
		fn()
	})
	b.GetWidget().Disabled = !enabled
	return b
}

func (a *App) buildFileMenu() *widget.Container {
	idle := !a.busy()
	section := style.Section("File")

	section.AddChild(action("Open ROM...", idle, a.OpenROM))

	section.AddChild(style.Label("Open Recent", style.TextSecondary))
	if len(a.config.RecentROMs) == 0 {
		section.AddChild(style.Label("(none)", style.TextSecondary))
	}
	for _, path := range a.config.RecentROMs {
		label, _ := style.TruncateStart(path, menuPathChars)
		section.AddChild(action(label, idle, func() { a.LaunchROM(path) }))
	}

	section.AddChild(action("Save State", a.running, a.SaveState))
	section.AddChild(action("Save State To...", a.running, a.SaveStateTo))
	section.AddChild(action("Load State", a.running, a.LoadState))
	section.AddChild(action("Load State From...", a.running, a.LoadStateFrom))

	section.AddChild(style.Label("Current Save Slot", style.TextSecondary))
	slots := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewGridLayout(
			widget.GridLayoutOpts.Columns(5),
			widget.GridLayoutOpts.Spacing(style.TinySpacing, style.TinySpacing),
		)),
	)
	for slot := 0; slot <= m64p.MaxSaveSlot; slot++ {
		slots.AddChild(style.ToggleButton(fmt.Sprint(slot), slot == a.config.SaveSlot,
			func(*widget.ButtonClickedEventArgs) { a.SelectSlot(slot) }))
	}
	section.AddChild(slots)

	section.AddChild(action("Exit", true, a.Exit))
	return section
}

func (a *App) buildEmulationMenu() *widget.Container {
	running := a.running && !a.stopping
	section := style.Section("Emulation")

	section.AddChild(action("Stop", running, a.StopEmulation))
	section.AddChild(action("Pause / Resume", running, a.TogglePause))
	mute := "Mute"
	if a.muted {
		mute = "Unmute"
	}
	section.AddChild(action(mute, running, a.ToggleMute))
	section.AddChild(action("Soft Reset", running, func() { a.Reset(false) }))
	section.AddChild(action("Hard Reset", running, func() { a.Reset(true) }))
	section.AddChild(action("Take Screenshot", running, a.Screenshot))
	section.AddChild(action("Toggle Fullscreen", running, a.ToggleFullscreen))
	return section
}

func (a *App) buildSettingsMenu() *widget.Container {
	idle := !a.busy()
	core := a.coreConfig()
	section := style.Section("Settings")

	lib, _ := style.TruncateStart(core.LibraryPath, menuPathChars)
	section.AddChild(style.Label("Core: "+lib, style.TextSecondary))
	section.AddChild(action("Core Library...", idle, a.ChooseCoreLibrary))

	dir := core.PluginDir
	if dir == "" {
		dir = "(library search path)"
	}
	dir, _ = style.TruncateStart(dir, menuPathChars)
	section.AddChild(style.Label("Plugins: "+dir, style.TextSecondary))
	section.AddChild(action("Plugin Directory...", true, a.ChoosePluginDir))

	paths := pluginPaths(a.config.Plugins)
	for _, role := range session.Roles {
		name := style.BaseName(paths[role])
		if name == "" {
			name = "(not set)"
		}
		label, _ := style.TruncateEnd(strings.ToUpper(role.String()[:1])+role.String()[1:]+": "+name, menuPathChars)
		section.AddChild(action(label, true, func() { a.ChoosePlugin(role) }))
	}
	section.AddChild(action("Default Plugins", true, a.ResetPlugins))

	dbLabel := "Download Game Database"
	if a.downloading {
		dbLabel = "Downloading..."
	} else if a.gamedb != nil {
		dbLabel = "Update Game Database"
	}
	section.AddChild(action(dbLabel, !a.downloading, a.DownloadGameDB))

	section.AddChild(style.ToggleButton("Verbose Logging", core.Verbose,
		func(*widget.ButtonClickedEventArgs) { a.ToggleVerbose() }))
	section.AddChild(action("Theme: "+style.CurrentThemeName, true, a.CycleTheme))
	section.AddChild(action(fmt.Sprintf("Font Size: %d", a.config.FontSize), true, a.CycleFontSize))
	return section
}

// buildInfoPanel describes the running ROM and lists its cheats.
func (a *App) buildInfoPanel() *widget.Container {
	panel := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(style.TinySpacing),
		)),
	)

	if a.info == nil {
		panel.AddChild(style.Label("No ROM running", style.TextSecondary))
		return panel
	}
	info := a.info
	h := info.Header

	rows := [][2]string{
		{"ROM", info.ROMName},
		{"Image", fmt.Sprintf("%s, CRC32 %08X", info.Order, info.CRC32)},
		{"Internal name", h.Title()},
		{"CRC", fmt.Sprintf("%08X %08X", h.CRC1, h.CRC2)},
		{"Country", fmt.Sprintf("%02X", h.Country())},
	}
	if g := a.gameEntry(); g != nil {
		rows = append(rows, gameRows(g)...)
	}
	for i, r := range rows {
		panel.AddChild(infoRow(i, r[0], r[1]))
	}

	keyRow := style.ButtonRow()
	keyRow.AddChild(style.Label("Cheat key: "+info.CheatKey, style.Text))
	keyRow.AddChild(style.TextButton("Copy", style.ButtonPaddingSmall,
		func(*widget.ButtonClickedEventArgs) { a.CopyCheatKey() }))
	panel.AddChild(keyRow)

	a.addCheatList(panel, info.CheatKey)
	return panel
}

// gameRows describes a database entry, skipping unknown fields.
func gameRows(g *rdb.Game) [][2]string {
	var rows [][2]string
	add := func(name, value string) {
		if value != "" {
			rows = append(rows, [2]string{name, value})
		}
	}
	add("Title", g.Name)
	add("Developer", g.Developer)
	add("Publisher", g.Publisher)
	add("Genre", g.Genre)
	switch {
	case g.ReleaseYear != 0 && g.ReleaseMonth != 0:
		add("Released", fmt.Sprintf("%d-%02d", g.ReleaseYear, g.ReleaseMonth))
	case g.ReleaseYear != 0:
		add("Released", fmt.Sprint(g.ReleaseYear))
	}
	return rows
}

func infoRow(index int, name, value string) *widget.Container {
	row := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(style.AlternatingRowColor(index))),
		widget.ContainerOpts.Layout(widget.NewGridLayout(
			widget.GridLayoutOpts.Columns(2),
			widget.GridLayoutOpts.Stretch([]bool{false, true}, nil),
			widget.GridLayoutOpts.Spacing(style.DefaultSpacing, 0),
			widget.GridLayoutOpts.Padding(widget.NewInsetsSimple(style.TinySpacing)),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(0, style.RowHeight),
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Stretch: true}),
		),
	)
	row.AddChild(widget.NewText(
		widget.TextOpts.Text(name, style.FontFace(), style.TextSecondary),
		widget.TextOpts.WidgetOpts(widget.WidgetOpts.MinSize(style.SectionMinWidth/2, 0)),
	))
	row.AddChild(widget.NewText(widget.TextOpts.Text(value, style.FontFace(), style.Text)))
	return row
}

// addCheatList adds one toggle per cheat in the ROM's database section.
// Changes apply to the next launch.
func (a *App) addCheatList(panel *widget.Container, key string) {
	if a.cheats == nil {
		panel.AddChild(style.Label("Cheat database not loaded", style.TextSecondary))
		return
	}
	sec := a.cheats.Lookup(key)
	if sec == nil || len(sec.Cheats) == 0 {
		panel.AddChild(style.Label("No cheats for this ROM", style.TextSecondary))
		return
	}

	panel.AddChild(style.Label("Cheats for "+sec.GameName+" (next launch)", style.Accent))
	for i := range sec.Cheats {
		c := &sec.Cheats[i]
		sel, enabled := a.cheatState(key, c.Name)
		panel.AddChild(style.ToggleButton(cheatLabel(c, sel, enabled), enabled,
			func(*widget.ButtonClickedEventArgs) { a.ToggleCheat(key, c) }))
	}
}

// cheatLabel names a cheat with its chosen option, if any.
func cheatLabel(c *cheat.Cheat, sel cheat.Selection, enabled bool) string {
	label := strings.ReplaceAll(c.Name, `\`, " / ")
	if enabled && len(c.Options) > 0 && sel.Option >= 0 && sel.Option < len(c.Options) {
		label += ": " + c.Options[sel.Option].Name
	}
	return label
}
