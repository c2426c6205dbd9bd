package engine

import (
	"strconv"
	"strings"
)

var (
	animals = []string{
		"Doge", "Shiba", "Pepe", "Cat", "Monkey", "Hamster", "Frog", "Pig", "Bear", "Bull",
		"Fox", "Owl", "Eagle", "Rat", "Whale", "Penguin", "Panda", "Tiger", "Llama", "Crab",
		"Bat", "Seal", "Otter", "Gecko", "Axolotl", "Capybara", "Quokka", "Platypus",
	}
	prefixes = []string{
		"Baby", "Super", "Mega", "Ultra", "Mini", "Dark", "Turbo", "Giga", "Hyper", "Based",
		"Floki", "King", "Lord", "Chief", "Captain", "Dr.", "Mr.", "Alpha", "Sigma", "Chad",
	}
	suffixes = []string{
		"Inu", "Moon", "Rocket", "Finance", "Swap", "Coin", "Token", "DAO", "AI", "Bot",
		"Protocol", "Chain", "Verse", "Fi", "X", "GPT", "Pro", "Max", "Classic",
	}
	memeWords = []string{
		"HODL", "WAGMI", "NGMI", "FOMO", "COPE", "BONK", "BOOP", "WIF", "HAT", "POPCAT",
		"GMGN", "DEGEN", "APE", "PUMP", "MOON", "LAMBO", "YOLO", "GG", "KEK", "LOL",
		"SHILL", "REKT", "FUD", "NPC", "SIGMA", "CHAD", "BASED",
	}
	foods = []string{
		"Pizza", "Burger", "Taco", "Sushi", "Ramen", "Banana", "Donut", "Cookie", "Cake",
		"Tendies", "Nuggies", "Waffle", "Burrito",
	}
	popCulture = []string{
		"Elon", "Trump", "Satoshi", "Vitalik", "Ansem", "Solana", "Matrix", "Goku",
		"Thanos", "Harambe", "Musk", "CZ", "Wojak", "Bogdanoff",
	}
	avatars = []string{
		"🐸", "🐕", "🦊", "🐱", "🐵", "🐷", "🐻", "🐂", "🦅", "🐧", "🐼", "🐯",
		"🦙", "🦀", "🦇", "🦦", "🐢", "🐰", "🦎", "🐹", "💀", "🔥", "⚡", "🌙", "🚀", "💎", "🎮",
	}
)

const (
	maxNameAttempts = 50
	usedNamesLimit  = 200
	defaultTicker   = "TOKEN"
	tickerLength    = 5
)

// Identity is the generated display identity of a token.
type Identity struct {
	Name   string
	Ticker string
	Avatar string
}

// NameGenerator produces meme-style token names, avoiding recently used ones.
// Each simulation owns its own generator.
type NameGenerator struct {
	src      Source
	used     map[string]struct{}
	order    []string // insertion order of used, oldest first
	fallback int
}

// NewNameGenerator creates a generator drawing from src.
func NewNameGenerator(src Source) *NameGenerator {
	return &NameGenerator{
		src:  src,
		used: make(map[string]struct{}),
	}
}

func (g *NameGenerator) maybe(chance float64, fn func() string) string {
	if g.src.Float64() < chance {
		return fn()
	}
	return ""
}

func (g *NameGenerator) candidate() string {
	p := func(list []string) string { return pick(g.src, list) }

	switch int(g.src.Float64() * 10) {
	case 0:
		return p(prefixes) + " " + p(animals)
	case 1:
		return p(animals) + p(suffixes)
	case 2:
		return p(memeWords)
	case 3:
		return g.maybe(0.4, func() string { return p(prefixes) + " " }) + p(foods)
	case 4:
		return p(popCulture) + g.maybe(0.5, func() string { return " " + p(suffixes) })
	case 5:
		return p(animals) + p(animals)
	case 6:
		return p(prefixes) + " " + p(memeWords)
	case 7:
		return p(animals) + " WIF " + p(foods)
	case 8:
		return p(animals) + "GPT"
	default:
		return p(prefixes) + p(prefixes)
	}
}

// Generate returns a fresh identity. After maxNameAttempts collisions it falls
// back to an animal name with a counter suffix.
func (g *NameGenerator) Generate() Identity {
	var name string
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		c := g.candidate()
		if c == "" {
			continue
		}
		if _, taken := g.used[strings.ToUpper(c)]; !taken {
			name = c
			break
		}
	}
	if name == "" {
		g.fallback++
		name = pick(g.src, animals) + strconv.Itoa(g.fallback)
	}
	g.remember(name)

	return Identity{
		Name:   name,
		Ticker: TickerFor(name),
		Avatar: pick(g.src, avatars),
	}
}

// remember records name and, once more than usedNamesLimit are held, forgets
// the oldest half.
func (g *NameGenerator) remember(name string) {
	key := strings.ToUpper(name)
	if _, ok := g.used[key]; ok {
		return
	}
	g.used[key] = struct{}{}
	g.order = append(g.order, key)

	if len(g.order) > usedNamesLimit {
		keep := usedNamesLimit / 2
		evict := g.order[:len(g.order)-keep]
		for _, k := range evict {
			delete(g.used, k)
		}
		g.order = append([]string(nil), g.order[len(g.order)-keep:]...)
	}
}

// TickerFor derives a ticker from the first five ASCII alphanumerics of name.
func TickerFor(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == tickerLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return defaultTicker
	}
	return b.String()
}
