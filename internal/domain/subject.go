package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Weekday is a lecture day, 0 for Monday through 4 for Friday.
// Weekend lectures are not supported.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Valid reports whether d is a supported lecture day.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// ParseWeekday accepts an index ("0".."4"), a full day name or its
// three letter abbreviation, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, fmt.Errorf("weekday index %d out of range 0-4", n)
		}
		return d, nil
	}
	lower := strings.ToLower(s)
	for i, name := range weekdayNames {
		name = strings.ToLower(name)
		if lower == name || (len(lower) == 3 && strings.HasPrefix(name, lower)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// DaySet is an ascending, duplicate-free set of lecture weekdays.
type DaySet []Weekday

// NewDaySet builds a DaySet, dropping duplicates and invalid days.
func NewDaySet(days ...Weekday) DaySet {
	set := make(DaySet, 0, len(days))
	for _, d := range days {
		if d.Valid() && !slices.Contains(set, d) {
			set = append(set, d)
		}
	}
	slices.Sort(set)
	return set
}

// Contains reports whether d is in the set.
func (s DaySet) Contains(d Weekday) bool {
	_, found := slices.BinarySearch(s, d)
	return found
}

// Encode serialises the set as a JSON list of integers for storage.
func (s DaySet) Encode() string {
	ints := make([]int, len(s))
	for i, d := range s {
		ints[i] = int(d)
	}
	b, _ := json.Marshal(ints)
	return string(b)
}

// DecodeDaySet parses the stored form produced by Encode.
func DecodeDaySet(raw string) (DaySet, error) {
	if strings.TrimSpace(raw) == "" {
		return DaySet{}, nil
	}
	var ints []int
	if err := json.Unmarshal([]byte(raw), &ints); err != nil {
		return nil, fmt.Errorf("failed to decode day set %q: %w", raw, err)
	}
	days := make([]Weekday, 0, len(ints))
	for _, n := range ints {
		d := Weekday(n)
		if !d.Valid() {
			return nil, fmt.Errorf("day set %q contains invalid weekday %d", raw, n)
		}
		days = append(days, d)
	}
	return NewDaySet(days...), nil
}

func (s DaySet) String() string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}

// Colour is a token from the fixed subject palette.
type Colour string

const (
	Red    Colour = "red"
	Orange Colour = "orange"
	Yellow Colour = "yellow"
	Green  Colour = "green"
	Blue   Colour = "blue"
	Indigo Colour = "indigo"
	Violet Colour = "violet"
)

var palette = []struct {
	colour Colour
	name   string
	hex    string
}{
	{Red, "Red", "#FFB5B9"},
	{Orange, "Orange", "#FFE6BF"},
	{Yellow, "Yellow", "#FFEDB5"},
	{Green, "Green", "#B5F2BA"},
	{Blue, "Blue", "#BFDAFF"},
	{Indigo, "Indigo", "#DABFFF"},
	{Violet, "Violet", "#FBBFFF"},
}

// Palette returns every colour in display order.
func Palette() []Colour {
	out := make([]Colour, len(palette))
	for i, p := range palette {
		out[i] = p.colour
	}
	return out
}

// Valid reports whether c is part of the palette.
func (c Colour) Valid() bool {
	return c.index() >= 0
}

// Name is the human-readable colour name.
func (c Colour) Name() string {
	if i := c.index(); i >= 0 {
		return palette[i].name
	}
	return string(c)
}

// Hex is the CSS colour used when rendering the subject.
func (c Colour) Hex() string {
	if i := c.index(); i >= 0 {
		return palette[i].hex
	}
	return "#FFFFFF"
}

func (c Colour) index() int {
	for i, p := range palette {
		if p.colour == c {
			return i
		}
	}
	return -1
}

// Subject is a lecture course tracked by one owner.
// (Owner, Name) and (Owner, Colour) are unique.
type Subject struct {
	ID     int64
	Owner  string
	Name   string
	Colour Colour
	Days   DaySet
}
