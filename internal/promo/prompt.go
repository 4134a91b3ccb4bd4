package promo

import "fmt"

const promptTemplate = `Hasilkan satu gambar tunggal yang fotorealistis dan berkualitas promosi.

**Perintah Utama: Rasio aspek gambar keluaran HARUS %s. Ini adalah persyaratan yang ketat dan tidak dapat dinegosiasikan.**

**Konten Gambar:**
- **Orang:** Harus orang yang *sama persis* dari gambar masukan pertama.
- **Produk Pajangan:** Harus *produk pajangan yang sama persis* dari gambar masukan kedua.
- **Aksi:** Orang tersebut sedang %s.
- **Latar Belakang:** Pengaturannya adalah **%s**.

**Gaya Artistik & Batasan:**
- **Realisme:** Produk harus ditampilkan dengan jelas dan menarik. Pencahayaan harus profesional dan bersih, cocok untuk iklan produk, menciptakan suasana yang menarik.
- **Konsistensi:** Pertahankan penampilan persis orang dan produk pajangan dari gambar sumber.
- **Kualitas:** Gambar akhir harus beresolusi tinggi dan cocok untuk penggunaan promosi profesional.
- **Format:** Hanya keluarkan data gambar.`

// BuildPrompt renders the generation instruction for one pose. The person is
// the first input image and the product the second.
func BuildPrompt(ratio AspectRatio, background, pose string) string {
	return fmt.Sprintf(promptTemplate, ratio.Description(), pose, background)
}

// BuildPrompts renders one prompt per pose, in pose order.
func BuildPrompts(ratio AspectRatio, background string) []string {
	out := make([]string, 0, PoseCount)
	for _, pose := range poses {
		out = append(out, BuildPrompt(ratio, background, pose))
	}
	return out
}
