// Package decoder validates and decodes the Italian codice fiscale.
// The checksum algorithm and the date encoding follow the Decreto del
// Ministero delle Finanze of 23/12/1976.
package decoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var formatRe = regexp.MustCompile(`^[A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z]$`)

// oddValues maps characters in odd (1-based) positions to their
// contribution to the checksum.
var oddValues = map[byte]int{
	'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15, '7': 17, '8': 19, '9': 21,
	'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15, 'H': 17, 'I': 19, 'J': 21,
	'K': 2, 'L': 4, 'M': 18, 'N': 20, 'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14,
	'U': 16, 'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
}

// monthCodes maps the month letter to its calendar month.
var monthCodes = map[byte]time.Month{
	'A': time.January, 'B': time.February, 'C': time.March, 'D': time.April,
	'E': time.May, 'H': time.June, 'L': time.July, 'M': time.August,
	'P': time.September, 'R': time.October, 'S': time.November, 'T': time.December,
}

// Info is the personal data recoverable from a codice fiscale.
type Info struct {
	BirthDate      time.Time
	Age            int
	Gender         string // "M" or "F"
	BirthplaceCode string // cadastral code, e.g. "H501"
}

// Normalize uppercases and strips surrounding whitespace.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateFormat reports whether the code matches the standard 16-character
// layout. It does not verify the checksum.
func ValidateFormat(code string) bool {
	return formatRe.MatchString(Normalize(code))
}

// ValidateChecksum reports whether the final control character matches the
// one computed from the first 15 characters. Implies ValidateFormat.
func ValidateChecksum(code string) bool {
	code = Normalize(code)
	if !formatRe.MatchString(code) {
		return false
	}

	total := 0
	for i := 0; i < 15; i++ {
		ch := code[i]
		if (i+1)%2 == 1 {
			total += oddValues[ch]
		} else if ch >= '0' && ch <= '9' {
			total += int(ch - '0')
		} else {
			total += int(ch - 'A')
		}
	}
	return code[15] == byte('A'+total%26)
}

// Decode extracts birth date, age, gender and birthplace code. The code
// must pass the checksum. Two-digit years are resolved against the
// current date: a birth date that would land in the future rolls back a
// century.
func Decode(code string) (*Info, error) {
	return decodeAt(code, time.Now())
}

func decodeAt(code string, now time.Time) (*Info, error) {
	code = Normalize(code)
	if !ValidateChecksum(code) {
		return nil, fmt.Errorf("invalid codice fiscale: %s", code)
	}

	yy, _ := strconv.Atoi(code[6:8])
	month, ok := monthCodes[code[8]]
	if !ok {
		return nil, fmt.Errorf("invalid month code %q in codice fiscale", code[8])
	}

	day, _ := strconv.Atoi(code[9:11])
	gender := "M"
	if day > 40 {
		gender = "F"
		day -= 40
	}
	if day < 1 || day > 31 {
		return nil, fmt.Errorf("invalid day %d in codice fiscale", day)
	}

	year := now.Year() - now.Year()%100 + yy
	birth := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if birth.After(now) {
		birth = birth.AddDate(-100, 0, 0)
	}
	if birth.Day() != day || birth.Month() != month {
		return nil, fmt.Errorf("invalid date in codice fiscale: %s", code[6:11])
	}

	age := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		age--
	}

	return &Info{
		BirthDate:      birth,
		Age:            age,
		Gender:         gender,
		BirthplaceCode: code[11:15],
	}, nil
}
