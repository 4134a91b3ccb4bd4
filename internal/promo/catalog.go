package promo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Background struct {
	Description string `yaml:"description" json:"description"`
	Label       string `yaml:"label" json:"label"`
}

type Catalog struct {
	Backgrounds []Background `yaml:"backgrounds"`
}

var defaultBackgrounds = []Background{
	{
		Description: "Ruangan mewah dengan nuansa Islami, menampilkan pola geometris yang rumit, lengkungan yang elegan, dan pencahayaan yang lembut dan hangat",
		Label:       "Ruang Tamu Islami Mewah",
	},
	{Description: "A beautiful white sand beach with turquoise water", Label: "Pantai Pasir Putih"},
	{Description: "A lush green field with the Eiffel Tower in the background, Paris, France", Label: "Taman Menara Eiffel"},
	{Description: "An infinity pool with clear blue water under a bright sunny sky", Label: "Kolam Renang Infinity"},
	{Description: "A cozy indoor living room with a comfortable sofa", Label: "Ruang Tamu Nyaman"},
	{Description: "A stylish indoor bedroom with soft lighting", Label: "Kamar Tidur Bergaya"},
	{Description: "An outdoor flower garden bursting with colorful blooms", Label: "Taman Bunga"},
}

var poses = [...]string{
	"memegang produk pajangan dengan kedua tangan, menunjukkannya ke kamera dengan senyum bangga, seluruh badan.",
	"duduk di kursi modern, meletakkan produk pajangan di meja kecil di sebelahnya, sambil menunjuk ke arahnya.",
	"dalam bidikan close-up, memegang produk pajangan di dekat wajahnya, menyoroti detailnya.",
	"berdiri dan memegang produk pajangan setinggi dada, menatapnya dengan kekaguman.",
	"mempresentasikan produk pajangan seolah-olah dalam iklan TV, dengan satu tangan menunjukkannya.",
	"menata produk pajangan di rak sebagai bagian dari dekorasi rumah.",
}

const PoseCount = len(poses)

var ErrEmptyCatalog = errors.New("catalog has no backgrounds")

// Poses returns the pose clauses in generation order.
func Poses() []string {
	out := make([]string, len(poses))
	copy(out, poses[:])
	return out
}

func DefaultCatalog() Catalog {
	out := make([]Background, len(defaultBackgrounds))
	copy(out, defaultBackgrounds)
	return Catalog{Backgrounds: out}
}

// LoadCatalog reads a YAML background catalog. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) (Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}

	out := make([]Background, 0, len(c.Backgrounds))
	for _, b := range c.Backgrounds {
		b.Description = strings.TrimSpace(b.Description)
		b.Label = strings.TrimSpace(b.Label)
		if b.Description == "" {
			continue
		}
		if b.Label == "" {
			b.Label = b.Description
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}
	return Catalog{Backgrounds: out}, nil
}

// Default is the first background, the initial selection.
func (c Catalog) Default() Background {
	if len(c.Backgrounds) == 0 {
		return defaultBackgrounds[0]
	}
	return c.Backgrounds[0]
}

func (c Catalog) Lookup(description string) (Background, bool) {
	for _, b := range c.Backgrounds {
		if b.Description == description {
			return b, true
		}
	}
	return Background{}, false
}

// At returns the background at idx; used by surfaces that can only carry a
// short index, such as Telegram callback data.
func (c Catalog) At(idx int) (Background, bool) {
	if idx < 0 || idx >= len(c.Backgrounds) {
		return Background{}, false
	}
	return c.Backgrounds[idx], true
}

func (c Catalog) Index(description string) int {
	for i, b := range c.Backgrounds {
		if b.Description == description {
			return i
		}
	}
	return -1
}
