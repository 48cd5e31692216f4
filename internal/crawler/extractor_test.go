package crawler

import (
	"fmt"
	"strings"
	"testing"
)

func calebasseCard(name, price string) string {
	priceHTML := ""
	if price != "" {
		priceHTML = fmt.Sprintf(`<div class="product-card-price flex items-center gap-2"><span>%s</span></div>`, price)
	}
	return fmt.Sprintf(`<div class="product-card @container group">
		<div class="product-card-title line-clamp-2 max-w-full">%s</div>%s
	</div>`, name, priceHTML)
}

func calebassePage(next bool, cards ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"grid\">")
	for _, c := range cards {
		b.WriteString(c)
	}
	b.WriteString("</div>")
	if next {
		b.WriteString(`<nav><a rel="next" href="?page=2">Next</a></nav>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestExtractor(t *testing.T) {
	t.Parallel()

	t.Run("extracts calebasse cards", func(t *testing.T) {
		t.Parallel()

		body := calebassePage(true,
			calebasseCard("Green Tea", "12,50 €"),
			calebasseCard("  Ginseng\n Root ", "8,00 €"),
		)
		ext, err := NewExtractor(CalebasseRule()).Extract(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ext.Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(ext.Entries))
		}
		if ext.Entries[0] != (Entry{Name: "Green Tea", PriceText: "12,50 €"}) {
			t.Errorf("unexpected first entry: %+v", ext.Entries[0])
		}
		if ext.Entries[1].Name != "Ginseng Root" {
			t.Errorf("unexpected second name: %q", ext.Entries[1].Name)
		}
		if !ext.HasMore {
			t.Error("expected HasMore with a next link")
		}
	})

	t.Run("missing price yields empty price text", func(t *testing.T) {
		t.Parallel()

		ext, err := NewExtractor(nil).Extract(calebassePage(false, calebasseCard("Moxa", "")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ext.Entries) != 1 || ext.Entries[0].PriceText != "" {
			t.Errorf("unexpected entries: %+v", ext.Entries)
		}
		if ext.HasMore {
			t.Error("expected no more pages without next link")
		}
	})

	t.Run("zero cards means no more pages", func(t *testing.T) {
		t.Parallel()

		ext, err := NewExtractor(nil).Extract(calebassePage(true))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ext.Entries) != 0 || ext.HasMore {
			t.Errorf("expected empty extraction, got %+v", ext)
		}
	})

	t.Run("disabled next link is ignored", func(t *testing.T) {
		t.Parallel()

		body := strings.Replace(calebassePage(false, calebasseCard("A", "1 €")),
			"</body>", `<button class="next-page" disabled>Next</button></body>`, 1)
		ext, err := NewExtractor(nil).Extract(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ext.HasMore {
			t.Error("disabled next button must not count")
		}
	})

	t.Run("positional pairing without card selector", func(t *testing.T) {
		t.Parallel()

		body := `<ul>
			<li><h3 class="name">Alpha</h3><em class="price">1,00</em></li>
			<li><h3 class="name">Beta</h3></li>
			<li><h3 class="name">Gamma</h3><em class="price">3,00</em><em class="price">9,99</em></li>
		</ul><a class="next" href="/p2">next</a>`
		rule := &SelectorRule{Name: "h3.name", Price: "em.price", Next: []string{"a.next"}}
		ext, err := NewExtractor(rule).Extract(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Entry{
			{Name: "Alpha", PriceText: "1,00"},
			{Name: "Beta"},
			{Name: "Gamma", PriceText: "3,00"},
		}
		if len(ext.Entries) != len(want) {
			t.Fatalf("expected %d entries, got %+v", len(want), ext.Entries)
		}
		for i := range want {
			if ext.Entries[i] != want[i] {
				t.Errorf("entry %d = %+v, expected %+v", i, ext.Entries[i], want[i])
			}
		}
		if !ext.HasMore {
			t.Error("expected HasMore")
		}
	})
}
