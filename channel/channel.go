package channel

import (
	"context"
)

// Or 複数のチャンネルを1つに結合し、最初の入力チャンネルが閉じられた際に結果のチャンネルを閉じます。
// 値を扱わず、どれかのシグナルに通知が来たらチャネルをCloseするので any ではなくメモリコストが0の struct{} を使用している。
func Or(channels ...<-chan struct{}) <-chan struct{} {
	switch len(channels) {
	case 0:
		// untyped nil は、 「chan / map / func / pointer / slice / interface」のような
		//「nil を値として持てる型」に そのまま代入可能。
		return nil
	case 1:
		return channels[0]
	}

	orDone := make(chan struct{})
	go func() {
		defer close(orDone)

		switch len(channels) {
		case 2:
			select {
			case <-channels[0]:
			case <-channels[1]:
			}
		default:
			select {
			case <-channels[0]:
			case <-channels[1]:
			case <-channels[2]:
			case <-Or(append(channels[3:], orDone)...):
			}
		}
	}()

	return orDone
}

// OrDone は入力チャネル`c`からの値を転送するチャネルを返します。これは`ctx`がキャンセルされるか`c`が閉じられるまで続きます。
func OrDone[T any](ctx context.Context, c <-chan T) <-chan T {
	valStream := make(chan T)
	go func() {
		defer close(valStream)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-c:
				if ok == false {
					return
				}
				select {
				case valStream <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return valStream
}

