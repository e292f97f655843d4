package scheduler

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/domain"
	"github.com/pulseworks/vita-backend/internal/timezone"
)

var (
	outfitTops = []string{
		"white linen shirt", "black turtleneck", "oversized hoodie",
		"striped tee", "denim jacket over a tank top", "cropped knit sweater",
		"silk blouse", "vintage band tee",
	}
	outfitBottoms = []string{
		"high-waisted jeans", "pleated skirt", "cargo pants",
		"tailored trousers", "denim shorts", "flowy midi skirt",
	}
	outfitShoes = []string{
		"white sneakers", "chunky boots", "ballet flats",
		"strappy sandals", "retro runners",
	}
	outfitAccessories = []string{
		"gold hoops", "canvas tote", "silk scarf", "baseball cap",
		"layered necklaces", "",
	}
	outfitVibes = []string{
		"effortless", "polished", "cozy", "street", "romantic",
	}
)

// ensureOutfit regenerates the daily outfit at most once per local day. The
// guarded write in the store makes concurrent duplicates a no-op, and the
// pick itself is deterministic per persona and day, so a replayed plan step
// produces the same outfit it would have committed the first time.
func (s *Scheduler) ensureOutfit(ctx context.Context, p *domain.Persona, now time.Time) {
	localDay := timezone.LocalDay(p.City, now)
	if !p.NeedsOutfit(localDay) {
		return
	}

	outfit := pickOutfit(p.ID, localDay)
	applied, err := s.personas.SetOutfit(ctx, p.ID, outfit, localDay)
	if err != nil {
		s.log.WarnContext(ctx, "set daily outfit",
			slog.String("persona_id", p.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	if applied {
		p.DailyOutfit = &outfit
		p.OutfitDate = &localDay
	}
}

func pickOutfit(id uuid.UUID, day time.Time) domain.Outfit {
	h := fnv.New64a()
	h.Write(id[:])
	h.Write([]byte(day.Format("2006-01-02")))
	n := h.Sum64()

	pick := func(options []string) string {
		choice := options[n%uint64(len(options))]
		n /= uint64(len(options))
		return choice
	}

	return domain.Outfit{
		Top:       pick(outfitTops),
		Bottom:    pick(outfitBottoms),
		Shoes:     pick(outfitShoes),
		Accessory: pick(outfitAccessories),
		Vibe:      pick(outfitVibes),
	}
}
