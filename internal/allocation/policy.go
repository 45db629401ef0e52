package allocation

// Политика переаллокации: бронирование никогда не блокируется из-за
// нехватки персонала или номинальной ёмкости пула. Правила вынесены в
// именованные функции, чтобы их можно было заменить, не трогая аллокатор.

// ExpandPersonnelPool дополняет пул до required, дублируя последнего
// сотрудника в порядке пула. Пустой пул возвращается как есть.
func ExpandPersonnelPool(pool []int64, required int64) []int64 {
	if len(pool) == 0 || required <= int64(len(pool)) {
		return pool
	}

	expanded := make([]int64, 0, required)
	expanded = append(expanded, pool...)
	last := pool[len(pool)-1]
	for int64(len(expanded)) < required {
		expanded = append(expanded, last)
	}
	return expanded
}

// QuantityFloor возвращает количество для TOOL/CONSUMABLE связки:
// не меньше требуемого и не меньше числа уже созданных связок расписания.
// Это страховка от недоучёта, когда несколько требований делят один пул,
// а не точная инвентаризация.
func QuantityFloor(required int64, bindingsSoFar int) int64 {
	if int64(bindingsSoFar) > required {
		return int64(bindingsSoFar)
	}
	return required
}
