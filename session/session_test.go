package session

import (
	"bytes"
	"errors"
	"hash/crc32"
	"log"
	"strings"
	"testing"
	"time"

	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
)

type harness struct {
	core     *fakeCore
	attacher *fakeAttacher
	loader   *fakeLoader
	logs     *bytes.Buffer
	ctx      *Context
}

func newHarness(t *testing.T, gfxName, rspName string) *harness {
	t.Helper()
	h := &harness{
		core:   newFakeCore(),
		loader: newFakeLoader(gfxName, rspName),
		logs:   &bytes.Buffer{},
	}
	h.attacher = &fakeAttacher{core: h.core}
	h.ctx = New(Config{
		Core:    h.attacher,
		Plugins: h.loader,
		Logger:  log.New(h.logs, "", 0),
		LoadROM: fakeROM,
	})
	return h
}

func (h *harness) start(t *testing.T) <-chan error {
	t.Helper()
	result, err := h.ctx.Start(Request{ROMPath: "/roms/game.z64", Plugins: testPaths})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return result
}

func waitResult(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func waitExecuting(t *testing.T, c *fakeCore) {
	t.Helper()
	select {
	case <-c.executing:
	case <-time.After(5 * time.Second):
		t.Fatal("core never started executing")
	}
}

func TestSessionRunsAndTearsDown(t *testing.T) {
	h := newHarness(t, "Mupen64Plus OpenGL Video Plugin", "Hacktarux/Azimer High-Level Emulation RSP Plugin")
	result := h.start(t)
	waitExecuting(t, h.core)

	info, ok := h.ctx.Info()
	if !ok {
		t.Fatal("Info not available while running")
	}
	if info.CheatKey != "78563412-F0DEBC9A-C:45" {
		t.Errorf("CheatKey = %q", info.CheatKey)
	}
	if info.ROMName != "game.z64" {
		t.Errorf("ROMName = %q", info.ROMName)
	}

	if err := h.ctx.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := waitResult(t, result); err != nil {
		t.Fatalf("session error: %v", err)
	}

	wantAttach := []m64p.PluginType{m64p.PluginGfx, m64p.PluginAudio, m64p.PluginInput, m64p.PluginRSP}
	wantDetach := []m64p.PluginType{m64p.PluginRSP, m64p.PluginInput, m64p.PluginAudio, m64p.PluginGfx}
	if !equalTypes(h.core.attachLog, wantAttach) {
		t.Errorf("attach order = %v", h.core.attachLog)
	}
	if !equalTypes(h.core.detachLog, wantDetach) {
		t.Errorf("detach order = %v", h.core.detachLog)
	}
	if !h.loader.allClosed() {
		t.Error("plugins not unloaded")
	}
	if h.core.romCloses != 1 {
		t.Errorf("ROM closed %d times", h.core.romCloses)
	}
	if h.core.shutdown || h.core.detached {
		t.Error("core should stay attached after a clean session")
	}
	if h.ctx.Running() {
		t.Error("still running")
	}
	if _, ok := h.ctx.Info(); ok {
		t.Error("Info should be cleared after the session")
	}
	if !bytes.Equal(h.core.romBytes[:4], []byte{0x80, 0x37, 0x12, 0x40}) {
		t.Errorf("core got %x", h.core.romBytes)
	}
}

func equalTypes(a, b []m64p.PluginType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAttachFailureLeavesNothingAttached(t *testing.T) {
	for _, failing := range []m64p.PluginType{m64p.PluginGfx, m64p.PluginAudio, m64p.PluginInput, m64p.PluginRSP} {
		t.Run(failing.String(), func(t *testing.T) {
			h := newHarness(t, "gfx", "rsp")
			h.core.failAttach = failing

			err := waitResult(t, h.start(t))
			if !errors.Is(err, m64p.ErrInvalidState) {
				t.Fatalf("err = %v, want ErrInvalidState", err)
			}
			if !errors.Is(err, m64p.ErrPluginFail) {
				t.Errorf("err = %v, should wrap the attach failure", err)
			}
			if n := h.core.attachedCount(); n != 0 {
				t.Errorf("%d plugins left attached", n)
			}
			if !h.loader.allClosed() {
				t.Error("plugins not unloaded")
			}
			if h.core.romCloses != 1 {
				t.Errorf("ROM closed %d times", h.core.romCloses)
			}
			if !h.core.shutdown || !h.core.detached {
				t.Error("core not unwound")
			}
		})
	}
}

func TestAttachRequiresFullTable(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	var tbl PluginTable
	tbl[RoleGraphics] = h.loader.plugins["gfx.so"]

	n, err := h.ctx.attachPlugins(h.core, &tbl)
	if !errors.Is(err, m64p.ErrNotInit) {
		t.Fatalf("err = %v, want ErrNotInit", err)
	}
	if n != 0 || h.core.attachedCount() != 0 {
		t.Errorf("attached %d roles from an incomplete table", n)
	}
}

func TestPluginLoadFailureUnloadsEarlierRoles(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.loader.fail = "input.so"

	err := waitResult(t, h.start(t))
	if !errors.Is(err, m64p.ErrInvalidState) || !errors.Is(err, errFake) {
		t.Fatalf("err = %v", err)
	}
	if !h.loader.closed("gfx.so") || !h.loader.closed("audio.so") {
		t.Error("earlier plugins not unloaded")
	}
	if len(h.core.attachLog) != 0 {
		t.Error("nothing should be attached when loading fails")
	}
	if h.core.romCloses != 1 || !h.core.shutdown || !h.core.detached {
		t.Errorf("unwind incomplete: closes=%d shutdown=%v detached=%v",
			h.core.romCloses, h.core.shutdown, h.core.detached)
	}
}

func TestPluginTypeMismatch(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.loader.plugins["audio.so"].typ = m64p.PluginInput

	err := waitResult(t, h.start(t))
	if !errors.Is(err, m64p.ErrInvalidState) {
		t.Fatalf("err = %v", err)
	}
	if !h.loader.closed("audio.so") {
		t.Error("mismatched plugin not closed")
	}
}

func TestMissingPluginPath(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	paths := testPaths
	paths[RoleRSP] = ""

	result, err := h.ctx.Start(Request{ROMPath: "x.z64", Plugins: paths})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitResult(t, result); !errors.Is(err, m64p.ErrInvalidState) {
		t.Fatalf("err = %v", err)
	}
	if !h.loader.closed("gfx.so") {
		t.Error("loaded plugins not unloaded")
	}
}

func TestOpenROMFailure(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.core.openErr = m64p.ErrInputInvalid

	err := waitResult(t, h.start(t))
	if !errors.Is(err, m64p.ErrInvalidState) || !errors.Is(err, m64p.ErrInputInvalid) {
		t.Fatalf("err = %v", err)
	}
	if h.core.romCloses != 0 {
		t.Error("ROM closed although the core rejected it")
	}
	if len(h.loader.loads) != 0 {
		t.Error("plugins loaded after ROM rejection")
	}
	if !h.core.shutdown || !h.core.detached {
		t.Error("core not unwound")
	}
	if !strings.Contains(h.logs.String(), "GUI Error: core failed to open ROM image file") {
		t.Errorf("log = %q", h.logs.String())
	}
}

func TestLoadROMFailure(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.ctx.cfg.LoadROM = func(string) ([]byte, string, error) { return nil, "", errFake }

	err := waitResult(t, h.start(t))
	if !errors.Is(err, m64p.ErrInvalidState) || !errors.Is(err, errFake) {
		t.Fatalf("err = %v", err)
	}
	if !h.core.shutdown || !h.core.detached {
		t.Error("core not unwound")
	}

	// The next session attaches a fresh core.
	h.ctx.cfg.LoadROM = fakeROM
	h.core.shutdown, h.core.detached = false, false
	result := h.start(t)
	waitExecuting(t, h.core)
	h.ctx.Stop()
	waitResult(t, result)
	if h.attacher.attachs != 2 {
		t.Errorf("attachs = %d, want 2", h.attacher.attachs)
	}
}

func TestHeaderFailureUnwinds(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.core.headerErr = m64p.ErrInvalidState

	err := waitResult(t, h.start(t))
	if !errors.Is(err, m64p.ErrInvalidState) {
		t.Fatalf("err = %v", err)
	}
	if h.core.attachedCount() != 0 || !h.loader.allClosed() {
		t.Error("plugins left behind")
	}
	if !h.core.shutdown || !h.core.detached {
		t.Error("core not unwound")
	}
}

func TestHLEShimRestoredAfterSession(t *testing.T) {
	h := newHarness(t, hleGfxName, hleRSPName)
	result := h.start(t)
	waitExecuting(t, h.core)

	if h.core.hleFlag() {
		t.Error("HLE hand-off should be disabled while running")
	}

	h.ctx.Stop()
	if err := waitResult(t, result); err != nil {
		t.Fatalf("session error: %v", err)
	}
	if !h.core.hleFlag() {
		t.Error("HLE hand-off not restored")
	}
}

func TestHLEShimRestoredOnAbort(t *testing.T) {
	h := newHarness(t, hleGfxName, hleRSPName)
	h.core.failAttach = m64p.PluginRSP

	if err := waitResult(t, h.start(t)); !errors.Is(err, m64p.ErrInvalidState) {
		t.Fatalf("err = %v", err)
	}
	if !h.core.hleFlag() {
		t.Error("HLE hand-off not restored after abort")
	}
}

func TestHLEShimRestoresFalse(t *testing.T) {
	h := newHarness(t, hleGfxName, hleRSPName)
	h.core.config[hleSection+"/"+hleParamKey] = false
	result := h.start(t)
	waitExecuting(t, h.core)
	h.ctx.Stop()
	waitResult(t, result)
	if h.core.hleFlag() {
		t.Error("flag should be back to false")
	}
}

func TestHLEShimUntouchedForOtherPlugins(t *testing.T) {
	tests := []struct {
		name string
		gfx  string
		rsp  string
	}{
		{"neither", "GLideN64", "HLE RSP"},
		{"gfx only", hleGfxName, "HLE RSP"},
		{"rsp only", "GLideN64", hleRSPName},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.gfx, tc.rsp)
			result := h.start(t)
			waitExecuting(t, h.core)
			if !h.core.hleFlag() {
				t.Error("flag changed while running")
			}
			h.ctx.Stop()
			waitResult(t, result)
			if !h.core.hleFlag() {
				t.Error("flag changed after session")
			}
		})
	}
}

func TestStartBusyWhileRunning(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	result := h.start(t)
	waitExecuting(t, h.core)

	if _, err := h.ctx.Start(Request{ROMPath: "other.z64", Plugins: testPaths}); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}

	h.ctx.Stop()
	waitResult(t, result)
}

func TestStartBusyWhenCoreNotStopped(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.core.state = m64p.EmuPaused

	if _, err := h.ctx.Start(Request{ROMPath: "x.z64", Plugins: testPaths}); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestStartCoreAttachFailure(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.attacher.err = errFake

	if _, err := h.ctx.Start(Request{ROMPath: "x.z64", Plugins: testPaths}); !errors.Is(err, errFake) {
		t.Errorf("err = %v", err)
	}
	if h.ctx.Running() {
		t.Error("should not be running")
	}
}

func TestStopUnattachedReturnsImmediately(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	if err := h.ctx.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h.attacher.attachs != 0 {
		t.Error("Stop should not attach the core")
	}
}

func TestStopWhenStoppedIsNoop(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	if _, err := h.ctx.EmuState(); err != nil {
		t.Fatalf("EmuState: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.ctx.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop on a stopped core did not return")
	}
	if h.core.stopCalls != 0 {
		t.Error("stop command sent to a stopped core")
	}
}

func TestStopBlocksUntilStopped(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.core.stopDelay = 5
	result := h.start(t)
	waitExecuting(t, h.core)

	start := time.Now()
	if err := h.ctx.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*stopPollInterval {
		t.Errorf("Stop returned after %v, before the core reported stopped", elapsed)
	}
	st, _ := h.ctx.EmuState()
	if st != m64p.EmuStopped {
		t.Errorf("state after Stop = %s", st)
	}
	waitResult(t, result)
}

func TestCloseWhileLoading(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	loading := make(chan struct{})
	release := make(chan struct{})
	h.ctx.cfg.LoadROM = func(path string) ([]byte, string, error) {
		close(loading)
		<-release
		return fakeROM(path)
	}
	started := false
	h.ctx.cfg.OnStart = func(Info) { started = true }

	result := h.start(t)
	<-loading

	closeErr := make(chan error, 1)
	go func() { closeErr <- h.ctx.Close() }()

	// Wait for the stop to be recorded before letting the load finish.
	for {
		h.ctx.mu.Lock()
		requested := h.ctx.stopRequested
		h.ctx.mu.Unlock()
		if requested {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	select {
	case err := <-closeErr:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked after the load finished")
	}
	if err := waitResult(t, result); err != nil {
		t.Errorf("session error: %v", err)
	}

	select {
	case <-h.core.executing:
		t.Error("core executed after Close")
	default:
	}
	if started {
		t.Error("OnStart called for a stopped session")
	}
	if h.core.stopCalls != 0 {
		t.Errorf("stop command sent %d times to an idle core", h.core.stopCalls)
	}
	if h.core.romOpen || h.core.romCloses != 1 {
		t.Errorf("ROM open=%v closes=%d", h.core.romOpen, h.core.romCloses)
	}
	if h.core.attachedCount() != 0 || !h.loader.allClosed() {
		t.Error("plugins left attached or loaded")
	}
	if !h.core.shutdown {
		t.Error("core not shut down")
	}
	if h.ctx.Running() {
		t.Error("still running after Close")
	}
}

func TestCheatsHandedToCore(t *testing.T) {
	db, err := cheat.Parse(strings.NewReader(`crc 78563412-F0DEBC9A-C:45
gn Test
 cn Infinite Health
  8033B21E 0008
 cn Level Select
  8033B4AB ???? 0001:One,0002:Two
`))
	if err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, "gfx", "rsp")
	var gotKey string
	result, err := h.ctx.Start(Request{
		ROMPath: "x.z64",
		Plugins: testPaths,
		Cheats:  db,
		Selections: func(key string) []cheat.Selection {
			gotKey = key
			return []cheat.Selection{{Name: "Level Select", Option: 1}}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	waitExecuting(t, h.core)
	h.ctx.Stop()
	waitResult(t, result)

	if gotKey != "78563412-F0DEBC9A-C:45" {
		t.Errorf("key = %q", gotKey)
	}
	if len(h.core.cheats) != 1 || h.core.cheats[0] != "Level Select" {
		t.Errorf("cheats = %v", h.core.cheats)
	}
}

func TestNoCheatsIsWarning(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	h.core.header.Name = [20]byte{'T', 'E', 'S', 'T'}
	result := h.start(t)
	waitExecuting(t, h.core)
	h.ctx.Stop()
	if err := waitResult(t, result); err != nil {
		t.Fatalf("session error: %v", err)
	}
	if !strings.Contains(h.logs.String(), "GUI Warning: no cheat codes found for ROM image 'TEST'") {
		t.Errorf("log = %q", h.logs.String())
	}
}

func TestCloseShutsDownCore(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	result := h.start(t)
	waitExecuting(t, h.core)

	if err := h.ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := waitResult(t, result); err != nil {
		t.Fatalf("session error: %v", err)
	}
	if !h.core.shutdown || !h.core.detached {
		t.Error("core not shut down")
	}
	if h.core.attachedCount() != 0 {
		t.Error("plugins still attached")
	}
}

func TestOnStartAndMessages(t *testing.T) {
	h := newHarness(t, "gfx", "rsp")
	started := make(chan Info, 1)
	var levels []m64p.MsgLevel
	h.ctx.cfg.OnStart = func(i Info) { started <- i }
	h.ctx.cfg.OnMessage = func(level m64p.MsgLevel, msg string) { levels = append(levels, level) }

	result := h.start(t)
	info := <-started
	if info.Plugins[RoleAudio] != "SDL Audio" {
		t.Errorf("Plugins = %v", info.Plugins)
	}
	rom, _, _ := fakeROM("")
	if want := crc32.ChecksumIEEE(rom); info.CRC32 != want {
		t.Errorf("CRC32 = %08X, want %08X", info.CRC32, want)
	}
	waitExecuting(t, h.core)
	h.ctx.Stop()
	waitResult(t, result)

	for _, l := range levels {
		if l == m64p.MsgVerbose {
			t.Error("verbose message forwarded without verbose logging")
		}
	}
}
