package merge

// Sink получает строки журнала, прогресс 0..100 и итог запуска.
type Sink interface {
	Log(line string)
	Progress(value float64)
	Done(sum Summary)
}

// Summary - итог запуска.
type Summary struct {
	Mode    Mode
	Total   int // каталогов всего
	Merged  int
	Skipped int // пустые или уже собранные
	Failed  int
	Message string
	Err     error // ошибка всего запуска
}

// OK сообщает, что запуск прошёл без ошибок.
func (s Summary) OK() bool {
	return s.Err == nil && s.Failed == 0
}

// Funcs - Sink из отдельных функций; незаданные пропускаются.
type Funcs struct {
	LogFunc      func(string)
	ProgressFunc func(float64)
	DoneFunc     func(Summary)
}

func (f Funcs) Log(line string) {
	if f.LogFunc != nil {
		f.LogFunc(line)
	}
}

func (f Funcs) Progress(v float64) {
	if f.ProgressFunc != nil {
		f.ProgressFunc(v)
	}
}

func (f Funcs) Done(s Summary) {
	if f.DoneFunc != nil {
		f.DoneFunc(s)
	}
}
