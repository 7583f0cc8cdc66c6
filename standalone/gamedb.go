package standalone

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/user-none/m64ui/rdb"
	"github.com/user-none/m64ui/standalone/storage"
)

const (
	// Base URL for libretro-database RDB files
	rdbBaseURL = "https://github.com/libretro/libretro-database/raw/refs/heads/master/rdb"

	// Database covering every N64 cartridge dump
	rdbName = "Nintendo - Nintendo 64"

	downloadTimeout = 60 * time.Second
)

// gameDBURL is where DownloadGameDB fetches from.
var gameDBURL = fmt.Sprintf("%s/%s.rdb", rdbBaseURL, url.PathEscape(rdbName))

// HTTP client with timeout
var httpClient = &http.Client{
	Timeout: downloadTimeout,
}

// loadGameDB reads the downloaded database. A missing file is not an
// error; a corrupt one is deleted so the next download starts clean.
func loadGameDB() (*rdb.DB, error) {
	path, err := storage.GetGameDBPath()
	if err != nil {
		return nil, err
	}
	db, err := rdb.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if errors.Is(err, rdb.ErrCorrupt) {
		os.Remove(path)
	}
	return db, err
}

// fetchGameDB downloads and validates the database, then replaces the
// stored copy.
func fetchGameDB(client *http.Client, src string) (*rdb.DB, error) {
	resp, err := client.Get(src)
	if err != nil {
		return nil, fmt.Errorf("failed to download game database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("game database download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read game database: %w", err)
	}

	db, err := rdb.Parse(data)
	if err != nil {
		return nil, err
	}

	path, err := storage.GetGameDBPath()
	if err != nil {
		return nil, err
	}
	if err := storage.AtomicWriteFile(path, data); err != nil {
		return nil, err
	}
	return db, nil
}

// DownloadGameDB fetches the libretro N64 database in the background. The
// info panel uses it to name the running ROM.
func (a *App) DownloadGameDB() {
	if a.downloading {
		return
	}
	a.downloading = true
	a.notification.ShowDefault("Downloading game database...")
	a.RequestRebuild()

	a.async(func() {
		db, err := fetchGameDB(httpClient, gameDBURL)
		a.post(func() {
			a.downloading = false
			a.RequestRebuild()
			if err != nil {
				a.report("Game database", err)
				return
			}
			a.gamedb = db
			a.notification.ShowDefault(fmt.Sprintf("Game database updated (%d games)", db.GameCount()))
		})
	})
}

// openGameDB loads the stored database at startup.
func (a *App) openGameDB() {
	db, err := loadGameDB()
	if err != nil {
		log.Printf("Game database unavailable: %v", err)
		return
	}
	a.gamedb = db
}

// gameEntry returns the database entry for the running ROM, if any.
func (a *App) gameEntry() *rdb.Game {
	if a.info == nil {
		return nil
	}
	return a.gamedb.FindByCRC32(a.info.CRC32)
}
