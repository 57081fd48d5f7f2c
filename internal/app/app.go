// 包 app 为应用控制器：持有内存中的记录列表（唯一的共享可变状态）、按账号划分的草稿槽位与存储。
// 记录只通过 Add/Update/Delete 修改：先写存储，成功后再对本地列表做等价修改，失败时本地列表保持不变。
package app

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/composer"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/router"
	"go-landing-studio/internal/store"
)

// Controller 实现 composer.Persister。
type Controller struct {
	store store.Store

	slotMu sync.Mutex
	slots  map[string]*composer.DraftSlot

	mu       sync.RWMutex
	records  []model.LandingRecord
	operator *auth.Identity
}

var _ composer.Persister = (*Controller)(nil)

// New 创建控制器；调用 Load 之前列表为空。
func New(s store.Store) *Controller {
	return &Controller{store: s, slots: make(map[string]*composer.DraftSlot)}
}

// Load 从存储读取全部记录（最新在前）替换本地列表。
func (c *Controller) Load(ctx context.Context) error {
	list, err := c.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load pages: %w", err)
	}
	c.mu.Lock()
	c.records = list
	c.mu.Unlock()
	logx.Infof("已加载 %d 个落地页", len(list))
	return nil
}

// Records 返回列表副本。
func (c *Controller) Records() []model.LandingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

// Drafts 返回 ctx 中身份（没有时为运营账号）的草稿槽位；同一账号总是得到同一个槽位。
func (c *Controller) Drafts(ctx context.Context) *composer.DraftSlot {
	owner := c.ownerFor(ctx)
	c.slotMu.Lock()
	defer c.slotMu.Unlock()
	slot, ok := c.slots[owner]
	if !ok {
		slot = &composer.DraftSlot{}
		c.slots[owner] = slot
	}
	return slot
}

// BySlug 按 slug 查找（列表顺序中的第一个匹配）。
func (c *Controller) BySlug(slug string) *model.LandingRecord {
	return router.BySlug(c.Records(), slug)
}

// ByID 按 id 查找。
func (c *Controller) ByID(id string) *model.LandingRecord {
	return router.ByID(c.Records(), id)
}

// Add 写入新记录；所有者取请求上下文中的身份，没有时取当前会话的运营账号。
func (c *Controller) Add(ctx context.Context, rec model.LandingRecord) error {
	owner := c.ownerFor(ctx)
	if err := c.store.Insert(ctx, rec, owner); err != nil {
		logx.Warnf("新建落地页失败 %s: %v", rec.ID, err)
		return fmt.Errorf("insert page: %w", err)
	}
	c.mu.Lock()
	c.records = append([]model.LandingRecord{rec}, c.records...)
	c.mu.Unlock()
	logx.Infof("新建落地页 %s owner=%s", rec.Slug, owner)
	return nil
}

// Update 按 id 覆盖全部可变字段；id 与 createdAt 保持不变。
func (c *Controller) Update(ctx context.Context, rec model.LandingRecord) error {
	u := model.FullUpdate(rec)
	if err := c.store.Update(ctx, rec.ID, u); err != nil {
		logx.Warnf("更新落地页失败 %s: %v", rec.ID, err)
		return fmt.Errorf("update page %s: %w", rec.ID, err)
	}
	c.mu.Lock()
	for i := range c.records {
		if c.records[i].ID == rec.ID {
			c.records[i] = u.Apply(c.records[i])
			break
		}
	}
	c.mu.Unlock()
	logx.Infof("更新落地页 %s", rec.ID)
	return nil
}

// Delete 删除记录。
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		logx.Warnf("删除落地页失败 %s: %v", id, err)
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	c.mu.Lock()
	c.records = slices.DeleteFunc(c.records, func(r model.LandingRecord) bool { return r.ID == id })
	c.mu.Unlock()
	logx.Infof("删除落地页 %s", id)
	return nil
}

// Watch 跟随会话的身份信号，记住当前运营账号；返回取消订阅函数。
func (c *Controller) Watch(s *auth.Session) func() {
	return s.Watch(func(id *auth.Identity) {
		c.mu.Lock()
		c.operator = id
		c.mu.Unlock()
		if id != nil {
			logx.Debugf("当前运营账号 %s", id.Email)
		}
	})
}

// Operator 返回当前运营账号；未登录为 nil。
func (c *Controller) Operator() *auth.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.operator == nil {
		return nil
	}
	id := *c.operator
	return &id
}

func (c *Controller) ownerFor(ctx context.Context) string {
	if id, ok := auth.IdentityFrom(ctx); ok {
		return id.UserID
	}
	if op := c.Operator(); op != nil {
		return op.UserID
	}
	return ""
}
