package theme

import (
	"os"
	"strings"
)

// SymbolSet holds every glyph the TUI draws, so the Unicode and ASCII sets
// can be swapped at runtime.
type SymbolSet struct {
	Success  string
	Error    string
	Warning  string
	Info     string
	Pending  string
	ArrowR   string
	Bullet   string
	Ellipsis string
	Cursor   string
	Line     string
}

var unicodeSymbols = SymbolSet{
	Success:  "\u2713", // ✓
	Error:    "\u2717", // ✗
	Warning:  "\u26a0", // ⚠
	Info:     "\u25cf", // ●
	Pending:  "\u25cb", // ○
	ArrowR:   "\u2192", // →
	Bullet:   "\u2022", // •
	Ellipsis: "\u2026", // …
	Cursor:   "\u203a", // ›
	Line:     "\u2500", // ─
}

var asciiSymbols = SymbolSet{
	Success:  "[OK]",
	Error:    "[ERR]",
	Warning:  "[!]",
	Info:     "[*]",
	Pending:  "[ ]",
	ArrowR:   "->",
	Bullet:   "*",
	Ellipsis: "...",
	Cursor:   ">",
	Line:     "-",
}

// ASCIIEnv forces the ASCII symbol set when set to 1 or true.
const ASCIIEnv = "OPENCLAW_SETUP_ASCII_SYMBOLS"

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// The ASCIIEnv override wins over locale detection.
func DetectUnicodeSupport() bool {
	if v := os.Getenv(ASCIIEnv); v == "1" || strings.EqualFold(v, "true") {
		return false
	}

	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}

	// Most modern terminals support Unicode.
	return true
}

// InitSymbols sets the package-level Symbol* variables based on terminal
// capabilities. It runs from init and again whenever tests change the
// environment.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolInfo = set.Info
	SymbolPending = set.Pending
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
	SymbolEllipsis = set.Ellipsis
	SymbolCursor = set.Cursor
	SymbolLine = set.Line
}

func init() {
	InitSymbols()
}
