package game

import (
	"context"
	"time"
)

// Behavior поведение, которое каждый шаг может ставить изменения в очередь
type Behavior interface {
	Tick()
}

// CameraSource источник положения камеры на шаге
type CameraSource interface {
	Camera(step uint64) Camera
}

// CameraFunc функция как CameraSource
type CameraFunc func(step uint64) Camera

func (f CameraFunc) Camera(step uint64) Camera { return f(step) }

// RunOptions параметры цикла
type RunOptions struct {
	Tick      time.Duration
	Autosave  time.Duration // 0 - без автосохранения
	MaxSteps  uint64        // 0 - до отмены контекста
	Camera    CameraSource
	Behaviors []Behavior
	OnStep    func(StepReport)
}

// Run крутит шаги с фиксированным периодом до отмены ctx или MaxSteps.
// Мир не выгружается: это делает Shutdown.
func (e *Engine) Run(ctx context.Context, opts RunOptions) error {
	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()

	lastSave := time.Now()
	var step uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for _, b := range opts.Behaviors {
			b.Tick()
		}
		cam := e.currentCamera()
		if opts.Camera != nil {
			cam = opts.Camera.Camera(step)
		}
		rep := e.Step(ctx, cam)
		step++
		if opts.OnStep != nil {
			opts.OnStep(rep)
		}

		if opts.Autosave > 0 && time.Since(lastSave) >= opts.Autosave {
			if n, err := e.SaveDirty(ctx); err != nil {
				e.log.Error("Ошибка автосохранения: %v", err)
			} else if n > 0 {
				e.log.Info("💾 Автосохранение: %d чанков", n)
			}
			lastSave = time.Now()
		}

		if opts.MaxSteps > 0 && step >= opts.MaxSteps {
			return nil
		}
	}
}

func (e *Engine) currentCamera() Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera
}
