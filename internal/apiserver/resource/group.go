package resource

import "content-platform/internal/shared/model"

// GroupBySubCategory 将已排序的资源按 category.sub 切分为连续分组
//
// 输入须已按 category.sub 降序、createdAt 降序排列；
// 单次遍历，sub 值变化处开始新分组，分组顺序与输入顺序一致。
func GroupBySubCategory(sorted []*model.ResourceView) [][]*model.ResourceView {
	groups := [][]*model.ResourceView{}
	for i, r := range sorted {
		if i == 0 || r.Category.Sub != sorted[i-1].Category.Sub {
			groups = append(groups, []*model.ResourceView{})
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], r)
	}
	return groups
}
