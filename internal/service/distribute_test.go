// Package service 奖品分发服务测试
package service

import (
	"errors"
	"testing"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// 场景：仓库只剩 1 个库存，2 个中奖者，一个拿奖品一个拿保底
func TestDistribution_StockExhaustion(t *testing.T) {
	e := newTestEngine()

	if err := e.prizes.AddPrizes("w1", []string{"一等奖"}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500100, Title: "t", Keyword: "抽", MaxParticipants: 2, WinnerCount: 2, Warehouse: "w1",
	})
	e.mustJoin(t, lottery.ID, 8001)
	result := e.mustJoin(t, lottery.ID, 8002) // 满员触发开奖

	if result.Draw == nil {
		t.Fatal("满员应该触发开奖")
	}

	winners := result.Draw.Winners
	if len(winners) != 2 {
		t.Fatalf("应该有 2 条中奖记录，实际是 %d", len(winners))
	}

	prizeHits, fallbackHits := 0, 0
	for _, w := range winners {
		switch w.PrizeText {
		case "一等奖":
			prizeHits++
		case e.cfg.Lottery.FallbackPrize:
			fallbackHits++
		default:
			t.Errorf("意外的奖品文案: %s", w.PrizeText)
		}
	}
	if prizeHits != 1 || fallbackHits != 1 {
		t.Errorf("应该是 1 个奖品 + 1 个保底，实际 %d/%d", prizeHits, fallbackHits)
	}

	items, _ := e.store.ListByWarehouse("w1")
	if items[0].Stock != 0 {
		t.Errorf("奖品库存应该是 0，实际是 %d", items[0].Stock)
	}
}

// 消费顺序：order_index 升序
func TestDistribution_ConsumptionOrder(t *testing.T) {
	e := newTestEngine()

	if err := e.prizes.AddPrizes("w2", []string{"先发的", "后发的"}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500101, Title: "t", Keyword: "抽", MaxParticipants: 1, WinnerCount: 1, Warehouse: "w2",
	})
	result := e.mustJoin(t, lottery.ID, 8101)

	if result.Draw == nil || len(result.Draw.Winners) != 1 {
		t.Fatal("应该产生 1 条中奖记录")
	}
	if got := result.Draw.Winners[0].PrizeText; got != "先发的" {
		t.Errorf("应该先消费低序号奖品，实际拿到 %s", got)
	}
}

// 落库失败时归还库存（补偿动作）
func TestDistribution_RestockOnRecordFailure(t *testing.T) {
	e := newTestEngine()

	if err := e.prizes.AddPrizes("w3", []string{"奖品A"}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}

	lottery := &models.Lottery{
		ID: 999, ChatID: -500102, Title: "t", Mode: models.ModeClaim,
		ClaimTimeout: 3600, Warehouse: "w3",
	}
	winners := []models.Participant{{TG: 8201, Name: "倒霉蛋"}}

	e.store.failWinnerCreate = true
	records, err := e.distributor.Distribute(lottery, winners)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("落库失败不应该产生记录，实际有 %d 条", len(records))
	}

	items, _ := e.store.ListByWarehouse("w3")
	if items[0].Stock != 1 {
		t.Errorf("落库失败后库存应该被归还为 1，实际是 %d", items[0].Stock)
	}
}

// auto 模式：发送成功置为 sent，失败保持 pending，互不影响
func TestDistribution_AutoSend(t *testing.T) {
	e := newTestEngine()
	e.notifier.failFor[8302] = true

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500103, Title: "t", Keyword: "抽", MaxParticipants: 2, WinnerCount: 2,
		Mode: models.ModeAutoSend,
	})
	e.mustJoin(t, lottery.ID, 8301)
	result := e.mustJoin(t, lottery.ID, 8302)

	if result.Draw == nil {
		t.Fatal("满员应该触发开奖")
	}

	records, _ := e.store.RecordsByLottery(lottery.ID)
	statuses := map[int64]string{}
	for _, r := range records {
		statuses[r.TG] = r.Status
	}

	if statuses[8301] != models.WinnerStatusSent {
		t.Errorf("发送成功的记录应该是 sent，实际是 %s", statuses[8301])
	}
	if statuses[8302] != models.WinnerStatusPending {
		t.Errorf("发送失败的记录应该保持 pending，实际是 %s", statuses[8302])
	}

	if e.notifier.sentCount(8301) != 1 {
		t.Errorf("用户 8301 应该收到 1 条私信，实际是 %d", e.notifier.sentCount(8301))
	}
}

// claim 模式不主动发送
func TestDistribution_ClaimModeNoAutoSend(t *testing.T) {
	e := newTestEngine()

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500104, Title: "t", Keyword: "抽", MaxParticipants: 1, WinnerCount: 1,
		Mode: models.ModeClaim,
	})
	e.mustJoin(t, lottery.ID, 8401)

	if e.notifier.sentCount(8401) != 0 {
		t.Error("claim 模式开奖不应该主动私信")
	}

	records, _ := e.store.RecordsByLottery(lottery.ID)
	if records[0].Status != models.WinnerStatusPending {
		t.Errorf("claim 模式记录应该保持 pending，实际是 %s", records[0].Status)
	}
}

func TestDistribution_MarkClaimed(t *testing.T) {
	e := newTestEngine()

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500105, Title: "t", Keyword: "抽", MaxParticipants: 1, WinnerCount: 1,
	})
	e.mustJoin(t, lottery.ID, 8501)

	ok, err := e.distributor.MarkClaimed(lottery.ID, 8501)
	if err != nil {
		t.Fatalf("MarkClaimed() error = %v", err)
	}
	if !ok {
		t.Error("首次领奖应该成功")
	}

	// 状态翻转是单向的，重复领取失败
	ok, _ = e.distributor.MarkClaimed(lottery.ID, 8501)
	if ok {
		t.Error("重复领奖应该失败")
	}

	records, _ := e.store.RecordsByLottery(lottery.ID)
	if records[0].Status != models.WinnerStatusSent {
		t.Errorf("领奖后状态应该是 sent，实际是 %s", records[0].Status)
	}
	if records[0].ClaimedAt == nil {
		t.Error("领奖后应该记录领取时间")
	}
}

func TestDistribution_ClaimAll(t *testing.T) {
	e := newTestEngine()

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500106, Title: "t", Keyword: "抽", MaxParticipants: 1, WinnerCount: 1,
	})
	e.mustJoin(t, lottery.ID, 8601)

	claimed, err := e.distributor.ClaimAll(8601)
	if err != nil {
		t.Fatalf("ClaimAll() error = %v", err)
	}
	if len(claimed) != 1 {
		t.Errorf("应该领到 1 条记录，实际是 %d", len(claimed))
	}

	if _, err := e.distributor.ClaimAll(8601); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("重复领取应该返回 ErrNothingToClaim，实际是 %v", err)
	}

	if _, err := e.distributor.ClaimAll(8699); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("未中奖用户应该返回 ErrNothingToClaim，实际是 %v", err)
	}
}

// 场景：超时的 pending 被清扫为 expired，sent 不受影响
func TestDistribution_SweepExpired(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	pending := &models.WinnerRecord{
		LotteryID: 1, TG: 8701, PrizeText: "奖品",
		Status:     models.WinnerStatusPending,
		AssignedAt: now.Add(-2 * time.Hour),
		ExpiresAt:  now.Add(-time.Second), // 已超时
	}
	sent := &models.WinnerRecord{
		LotteryID: 1, TG: 8702, PrizeText: "奖品",
		Status:     models.WinnerStatusSent,
		AssignedAt: now.Add(-2 * time.Hour),
		ExpiresAt:  now.Add(-time.Second), // 同样超时但已发放
	}
	fresh := &models.WinnerRecord{
		LotteryID: 1, TG: 8703, PrizeText: "奖品",
		Status:     models.WinnerStatusPending,
		AssignedAt: now,
		ExpiresAt:  now.Add(time.Hour), // 未超时
	}
	for _, r := range []*models.WinnerRecord{pending, sent, fresh} {
		if err := e.store.Create(r); err != nil {
			t.Fatalf("准备数据失败: %v", err)
		}
	}

	swept, err := e.distributor.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if swept != 1 {
		t.Errorf("应该清扫 1 条记录，实际是 %d", swept)
	}

	records, _ := e.store.RecordsByLottery(1)
	statuses := map[int64]string{}
	for _, r := range records {
		statuses[r.TG] = r.Status
	}

	if statuses[8701] != models.WinnerStatusExpired {
		t.Errorf("超时的 pending 应该变成 expired，实际是 %s", statuses[8701])
	}
	if statuses[8702] != models.WinnerStatusSent {
		t.Errorf("sent 是终态不应该被清扫，实际是 %s", statuses[8702])
	}
	if statuses[8703] != models.WinnerStatusPending {
		t.Errorf("未超时的 pending 不应该被清扫，实际是 %s", statuses[8703])
	}

	// 过期后不能再领取
	if _, err := e.distributor.ClaimAll(8701); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("过期记录不应该还能领取，实际错误: %v", err)
	}
}

// 无仓库绑定时全部走保底文案，不碰任何库存
func TestDistribution_NoWarehouse(t *testing.T) {
	e := newTestEngine()

	if err := e.prizes.AddPrizes("unrelated", []string{"别家的奖品"}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}

	lottery := e.mustCreateLottery(t, &CreateRequest{
		ChatID: -500107, Title: "t", Keyword: "抽", MaxParticipants: 1, WinnerCount: 1,
	})
	result := e.mustJoin(t, lottery.ID, 8801)

	if got := result.Draw.Winners[0].PrizeText; got != e.cfg.Lottery.FallbackPrize {
		t.Errorf("无仓库时应该用保底文案，实际是 %s", got)
	}

	items, _ := e.store.ListByWarehouse("unrelated")
	if items[0].Stock != 1 {
		t.Errorf("无关仓库的库存不应该被消耗，实际是 %d", items[0].Stock)
	}
}
