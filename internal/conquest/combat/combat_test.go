package combat

import (
	"errors"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/grid"
	"GeoConquest/internal/conquest/worldgen"
)

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	w      *domain.MemWorld
	r      *Resolver
	src    domain.CellID
	tgt    domain.CellID
	far    domain.CellID
	rules  domain.Rules
	attack Attack
}

func newFixture(srcStrength, tgtStrength int, defender domain.PlayerID) *fixture {
	rules := domain.DefaultRules()
	g := grid.New(rules.CellSize)
	gen := worldgen.New(g, rules)
	w := domain.NewMemWorld()

	src := domain.CellID(g.IDOf(grid.Cell{Row: 0, Col: 0}))
	tgt := domain.CellID(g.IDOf(grid.Cell{Row: 0, Col: 1}))
	far := domain.CellID(g.IDOf(grid.Cell{Row: 1, Col: 1}))

	players := []domain.Player{{ID: "user_a", Username: "a", Energy: 100, MaxEnergy: 100}}
	if defender != "" {
		players = append(players, domain.Player{ID: defender, Username: string(defender), Energy: 100, MaxEnergy: 100})
	}
	w.Load([]domain.Territory{
		{ID: src, Name: worldgen.SectorName(src), OwnerID: "user_a", Strength: srcStrength},
		{ID: tgt, Name: worldgen.SectorName(tgt), OwnerID: defender, Strength: tgtStrength},
		{ID: far, Name: worldgen.SectorName(far), Strength: 5},
	}, players)

	return &fixture{
		w: w, r: NewResolver(rules, gen), src: src, tgt: tgt, far: far, rules: rules,
		attack: Attack{AttackerID: "user_a", SourceID: src, TargetID: tgt},
	}
}

func TestCompute_进攻成功场景(t *testing.T) {
	r := Compute(10, 5, 1.2, 0.8)
	if r.AttackPower != 9 || r.DefensePower != 6 || !r.Won || r.TargetAfter != 3 || r.SourceAfter != 1 {
		t.Fatalf("got=%+v", r)
	}
}

func TestCompute_进攻失败场景(t *testing.T) {
	r := Compute(5, 10, 1.2, 0.8)
	if r.AttackPower != 4 || r.DefensePower != 12 || r.Won || r.TargetAfter != 9 || r.SourceAfter != 1 {
		t.Fatalf("got=%+v", r)
	}
}

func TestCompute_兵力守恒(t *testing.T) {
	for s := 2; s < 120; s++ {
		for d := 1; d < 120; d++ {
			r := Compute(s, d, 1.2, 0.8)
			if r.SourceAfter != 1 {
				t.Fatalf("期望 source 剩 1, s=%d d=%d", s, d)
			}
			if r.Won {
				if r.TargetAfter != r.AttackPower-r.DefensePower || r.TargetAfter <= 0 {
					t.Fatalf("胜利兵力不守恒 s=%d d=%d got=%+v", s, d, r)
				}
				continue
			}
			want := r.DefensePower - int(float64(r.AttackPower)*0.8+1e-9)
			if want < 1 {
				want = 1
			}
			if r.TargetAfter != want {
				t.Fatalf("失败兵力不守恒 s=%d d=%d got=%d want=%d", s, d, r.TargetAfter, want)
			}
		}
	}
}

func TestResolve_胜利后易主扩张并扣能量(t *testing.T) {
	f := newFixture(10, 5, "")
	tx := domain.Begin(f.w)
	rep, err := f.r.Resolve(tx, f.attack, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	tx.Commit()

	if !rep.Won || rep.Target.Strength != 3 || rep.Source.Strength != 1 {
		t.Fatalf("got=%+v", rep)
	}
	tgt, _ := f.w.Territory(f.tgt)
	if tgt.OwnerID != "user_a" {
		t.Fatalf("期望目标易主, got=%+v", tgt)
	}
	p, _ := f.w.Player("user_a")
	if p.Energy != 100-f.rules.AttackEnergyCost {
		t.Fatalf("期望扣能量, got=%d", p.Energy)
	}
	ns, _ := f.r.grid().NeighborIDs(string(f.tgt))
	for _, n := range ns {
		if _, ok := f.w.Territory(domain.CellID(n)); !ok {
			t.Fatalf("期望邻格 %s 已生成", n)
		}
	}
}

func TestResolve_失败同样扣能量(t *testing.T) {
	f := newFixture(5, 10, "user_b")
	rep, err := f.r.Resolve(f.w, f.attack, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.Won || rep.Target.Strength != 9 || rep.Source.Strength != 1 {
		t.Fatalf("got=%+v", rep)
	}
	tgt, _ := f.w.Territory(f.tgt)
	if tgt.OwnerID != "user_b" {
		t.Fatalf("期望守方保持, got=%s", tgt.OwnerID)
	}
	p, _ := f.w.Player("user_a")
	if p.Energy != 90 {
		t.Fatalf("期望失败也扣能量, got=%d", p.Energy)
	}
}

func TestResolve_夺走最后一格触发淘汰(t *testing.T) {
	f := newFixture(20, 2, "user_b")
	rep, err := f.r.Resolve(f.w, f.attack, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rep.Eliminated) != 1 || rep.Eliminated[0] != "user_b" {
		t.Fatalf("期望 user_b 被淘汰, got=%v", rep.Eliminated)
	}
	if _, ok := f.w.Player("user_b"); ok {
		t.Fatalf("期望 user_b 已从世界删除")
	}
	var kinds []domain.EventKind
	for _, ev := range rep.Events {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 2 || kinds[1] != domain.EventEliminated {
		t.Fatalf("期望先征服后淘汰事件, got=%v", kinds)
	}
}

func TestValidate_前置条件(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		want  error
	}{
		{"源格不存在", func(f *fixture) { f.attack.SourceID = "1.0000_1.0000" }, domain.ErrTerritoryNotFound},
		{"编号非法", func(f *fixture) { f.attack.TargetID = "bogus" }, domain.ErrBadCell},
		{"不拥有源格", func(f *fixture) { f.attack.SourceID, f.attack.TargetID = f.tgt, f.src }, domain.ErrNotOwner},
		{"目标已是自己", func(f *fixture) {
			t, _ := f.w.Territory(f.tgt)
			t.OwnerID = "user_a"
			f.w.PutTerritory(t)
		}, domain.ErrAlreadyOwned},
		{"不相邻", func(f *fixture) { f.attack.TargetID = f.far }, domain.ErrNotAdjacent},
		{"兵力为1", func(f *fixture) {
			t, _ := f.w.Territory(f.src)
			t.Strength = 1
			f.w.PutTerritory(t)
		}, domain.ErrInsufficientStrength},
		{"能量不足", func(f *fixture) {
			p, _ := f.w.Player("user_a")
			p.Energy = 9
			f.w.PutPlayer(p)
		}, domain.ErrInsufficientEnergy},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(10, 5, "")
			c.setup(f)
			f.w.ResetChanges()
			_, err := f.r.Resolve(f.w, f.attack, now)
			if !errors.Is(err, c.want) {
				t.Fatalf("期望 %v, got=%v", c.want, err)
			}
			if f.w.HasChanges() {
				t.Fatalf("期望校验失败不产生任何变更, got=%+v", f.w.Changes())
			}
		})
	}
}

func TestTransfer_受上限裁剪(t *testing.T) {
	f := newFixture(30, 4995, "")
	tgt, _ := f.w.Territory(f.tgt)
	tgt.OwnerID = "user_a"
	f.w.PutTerritory(tgt)

	rep, err := f.r.Transfer(f.w, Transfer{PlayerID: "user_a", SourceID: f.src, TargetID: f.tgt, Amount: 20}, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.Moved != 5 || rep.Source.Strength != 25 || rep.Target.Strength != 5000 {
		t.Fatalf("got=%+v", rep)
	}
}

func TestTransfer_数量越界(t *testing.T) {
	f := newFixture(10, 5, "")
	tgt, _ := f.w.Territory(f.tgt)
	tgt.OwnerID = "user_a"
	f.w.PutTerritory(tgt)

	for _, amount := range []int{0, -1, 10} {
		_, err := f.r.Transfer(f.w, Transfer{PlayerID: "user_a", SourceID: f.src, TargetID: f.tgt, Amount: amount}, now)
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount=%d 期望 ErrInvalidAmount, got=%v", amount, err)
		}
	}
}

func TestTransfer_目标非己方(t *testing.T) {
	f := newFixture(10, 5, "user_b")
	_, err := f.r.Transfer(f.w, Transfer{PlayerID: "user_a", SourceID: f.src, TargetID: f.tgt, Amount: 2}, now)
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("got=%v", err)
	}
}
