package vectorstore

// rerankMMR 对候选池做最大边际相关性（MMR）重排。
// 每轮选出使 lambda*relevance - (1-lambda)*maxSimToSelected 最大的候选，
// 直到取满 k 个或候选池耗尽。lambda=1 退化为纯相似度排序。
// 入参 pool 必须已按相似度降序排列且按 ChunkKey 去重。
func rerankMMR(pool []Candidate, k int, lambda float64) []Candidate {
	if len(pool) == 0 || k <= 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]Candidate, 0, k)
	remaining := make([]Candidate, len(pool))
	copy(remaining, pool)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, lambda)
		for i := 1; i < len(remaining); i++ {
			if s := mmrScore(remaining[i], selected, lambda); s > bestScore {
				bestIdx = i
				bestScore = s
			}
		}
		chosen := remaining[bestIdx]
		chosen.Rank = len(selected)
		selected = append(selected, chosen)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func mmrScore(c Candidate, selected []Candidate, lambda float64) float64 {
	var maxSim float64
	for _, s := range selected {
		if sim := dot(c.Vector, s.Vector); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*c.Score - (1-lambda)*maxSim
}

// dot 计算两个向量的点积。向量在入索引前已做 L2 归一化，点积即余弦相似度。
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
