package domain

// TargetKind 决定道具可以作用在哪里。
type TargetKind string

const (
	TargetSelf           TargetKind = "self"
	TargetOwnedTerritory TargetKind = "owned-territory"
	TargetEnemyTerritory TargetKind = "enemy-territory"
)

func (k TargetKind) NeedsTerritory() bool {
	return k == TargetOwnedTerritory || k == TargetEnemyTerritory
}

// ShopItem 是商店里的一件道具。Effect 对己方格/自身为增量；对敌方格只取绝对值做减量。
type ShopItem struct {
	ID          string     `mapstructure:"id" json:"id"`
	Name        string     `mapstructure:"name" json:"name"`
	Description string     `mapstructure:"description" json:"description"`
	Cost        int64      `mapstructure:"cost" json:"cost"`
	Target      TargetKind `mapstructure:"target" json:"target"`
	Effect      int        `mapstructure:"effect" json:"effect"`
}

type Catalog struct {
	items map[string]ShopItem
	order []string
}

func NewCatalog(items ...ShopItem) *Catalog {
	c := &Catalog{items: make(map[string]ShopItem, len(items))}
	for _, it := range items {
		if _, dup := c.items[it.ID]; !dup {
			c.order = append(c.order, it.ID)
		}
		c.items[it.ID] = it
	}
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog(
		ShopItem{ID: "recruit", Name: "Recruit Troops", Description: "+10 strength on one of your sectors", Cost: 50, Target: TargetOwnedTerritory, Effect: 10},
		ShopItem{ID: "fortify", Name: "Fortify", Description: "+25 strength on one of your sectors", Cost: 100, Target: TargetOwnedTerritory, Effect: 25},
		ShopItem{ID: "sabotage", Name: "Sabotage", Description: "-15 strength on a sector you do not own", Cost: 200, Target: TargetEnemyTerritory, Effect: -15},
		ShopItem{ID: "energy_cell", Name: "Energy Cell", Description: "+40 energy", Cost: 30, Target: TargetSelf, Effect: 40},
	)
}

func (c *Catalog) Get(id string) (ShopItem, bool) {
	if c == nil {
		return ShopItem{}, false
	}
	it, ok := c.items[id]
	return it, ok
}

// Items 按注册顺序返回。
func (c *Catalog) Items() []ShopItem {
	if c == nil {
		return nil
	}
	out := make([]ShopItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}
