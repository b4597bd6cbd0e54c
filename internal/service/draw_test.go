// Package service 开奖服务测试
package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// 场景：3 人参与、抽 2 人，开奖后活动完成，重复开奖被拒绝
func TestDrawService_Draw(t *testing.T) {
	e := newTestEngine()
	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -400100, Title: "t", Keyword: "抽", MaxParticipants: 5, WinnerCount: 2,
	})

	e.mustJoin(t, lottery.ID, 5001)
	e.mustJoin(t, lottery.ID, 5002)
	e.mustJoin(t, lottery.ID, 5003)

	result, err := e.draw.Draw(lottery.ID)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	if len(result.Winners) != 2 {
		t.Fatalf("应该有 2 个中奖者，实际是 %d", len(result.Winners))
	}

	// 中奖者必须来自参与者且互不相同
	valid := map[int64]bool{5001: true, 5002: true, 5003: true}
	seen := map[int64]bool{}
	for _, w := range result.Winners {
		if !valid[w.TG] {
			t.Errorf("中奖者 %d 不在参与者中", w.TG)
		}
		if seen[w.TG] {
			t.Errorf("中奖者 %d 重复", w.TG)
		}
		seen[w.TG] = true
		if w.Status != models.WinnerStatusPending {
			t.Errorf("新建中奖记录状态应该是 pending，实际是 %s", w.Status)
		}
		if w.ClaimCode == "" {
			t.Error("中奖记录应该携带领奖凭证")
		}
	}

	updated, _ := e.store.GetByID(lottery.ID)
	if updated.Status != models.LotteryStatusCompleted {
		t.Errorf("开奖后活动状态应该是 completed，实际是 %s", updated.Status)
	}

	if _, err := e.draw.Draw(lottery.ID); !errors.Is(err, ErrAlreadyDrawn) {
		t.Errorf("重复开奖应该返回 ErrAlreadyDrawn，实际是 %v", err)
	}
}

// 场景：无人参与的手动开奖，结果为空但活动完成
func TestDrawService_EmptyDraw(t *testing.T) {
	e := newTestEngine()
	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -400101, Title: "t", Keyword: "抽", MaxParticipants: 5, WinnerCount: 3,
	})

	result, err := e.draw.Draw(lottery.ID)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	if !result.Empty() {
		t.Error("无人参与的开奖结果应该是 Empty")
	}
	if len(result.Winners) != 0 {
		t.Errorf("不应该产生中奖记录，实际有 %d 条", len(result.Winners))
	}

	updated, _ := e.store.GetByID(lottery.ID)
	if updated.Status != models.LotteryStatusCompleted {
		t.Errorf("空场开奖后活动也应该完成，实际是 %s", updated.Status)
	}

	records, _ := e.store.RecordsByLottery(lottery.ID)
	if len(records) != 0 {
		t.Errorf("空场开奖不应该落中奖记录，实际有 %d 条", len(records))
	}
}

// 中奖人数超过实际参与人数时按参与人数收敛
func TestDrawService_ClampWinners(t *testing.T) {
	e := newTestEngine()
	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -400102, Title: "t", Keyword: "抽", MaxParticipants: 100, WinnerCount: 50,
	})

	e.mustJoin(t, lottery.ID, 6001)
	e.mustJoin(t, lottery.ID, 6002)

	result, err := e.draw.Draw(lottery.ID)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(result.Winners) != 2 {
		t.Errorf("中奖人数应该收敛到 2，实际是 %d", len(result.Winners))
	}
}

func TestDrawService_NotFound(t *testing.T) {
	e := newTestEngine()

	if _, err := e.draw.Draw(9999); !errors.Is(err, ErrLotteryNotFound) {
		t.Errorf("不存在的活动应该返回 ErrLotteryNotFound，实际是 %v", err)
	}
}

// 单次开奖不变式：并发开奖只有一个成功，其余得到 ErrAlreadyDrawn
func TestDrawService_ConcurrentDraw(t *testing.T) {
	e := newTestEngine()
	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -400103, Title: "t", Keyword: "抽", MaxParticipants: 10, WinnerCount: 2,
	})
	e.mustJoin(t, lottery.ID, 7001)
	e.mustJoin(t, lottery.ID, 7002)
	e.mustJoin(t, lottery.ID, 7003)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.draw.Draw(lottery.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyDrawn):
				rejected++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("并发开奖应该只有 1 个成功，实际是 %d", succeeded)
	}
	if rejected != attempts-1 {
		t.Errorf("其余 %d 次应该被拒绝，实际是 %d", attempts-1, rejected)
	}

	// 中奖记录也只有一批
	records, _ := e.store.RecordsByLottery(lottery.ID)
	if len(records) != 2 {
		t.Errorf("中奖记录应该是 2 条，实际是 %d", len(records))
	}
}

// 均匀性：n=5 取 k=2，大量重复后每人中选频率应接近 k/n
func TestSelectWinners_Uniform(t *testing.T) {
	if testing.Short() {
		t.Skip("统计测试，-short 跳过")
	}

	const (
		n      = 5
		k      = 2
		trials = 10000
	)

	participants := make([]models.Participant, n)
	for i := range participants {
		participants[i] = models.Participant{TG: int64(i + 1)}
	}

	counts := make(map[int64]int, n)
	for i := 0; i < trials; i++ {
		for _, w := range selectWinners(participants, k) {
			counts[w.TG]++
		}
	}

	// 期望命中数 trials*k/n = 4000，标准差约 49，放宽到 ±300
	const expected = trials * k / n
	const tolerance = 300
	for tg := int64(1); tg <= n; tg++ {
		got := counts[tg]
		if got < expected-tolerance || got > expected+tolerance {
			t.Errorf("参与者 %d 命中 %d 次，偏离期望值 %d 过多", tg, got, expected)
		}
	}
}

// 洗牌不修改原始切片
func TestSelectWinners_DoesNotMutateInput(t *testing.T) {
	participants := []models.Participant{
		{TG: 1}, {TG: 2}, {TG: 3}, {TG: 4},
	}

	selectWinners(participants, 2)

	for i, p := range participants {
		if p.TG != int64(i+1) {
			t.Fatal("selectWinners 不应该修改原始参与者列表")
		}
	}
}
