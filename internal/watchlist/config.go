// Package watchlist loads the symbols refreshed by the scheduler from YAML.
package watchlist

// File is the on-disk watchlist
//
//	schedule: "0 0 18 * * 1-5"
//	symbols: [AAPL, MSFT, BRK-B]
type File struct {
	Schedule string   `yaml:"schedule" json:"schedule"`
	Symbols  []string `yaml:"symbols" json:"symbols"`
}
