package btl

import "golang.org/x/sync/errgroup"

//Task is a unit of work executed by a Pool.
type Task interface {
	Execute() error
}

//Pool runs tasks on at most threadsNum goroutines.
type Pool struct {
	group errgroup.Group
}

//NewPool limits the pool to threadsNum concurrent tasks. Values below one allow a single task.
func NewPool(threadsNum int) *Pool {
	pool := new(Pool)
	pool.group.SetLimit(max(threadsNum, 1))
	return pool
}

//AddTask schedules a task. It blocks while all workers are busy.
func (pool *Pool) AddTask(task Task) {
	pool.group.Go(task.Execute)
}

//WaitAll blocks until every scheduled task has finished and returns the first error.
func (pool *Pool) WaitAll() error {
	return pool.group.Wait()
}

//TaskFindBestSplit scans one split candidate and stores the outcome in its own slot.
type TaskFindBestSplit struct {
	result    []BestSplit
	index     int
	scanSplit func(int) BestSplit
}

func (task *TaskFindBestSplit) Execute() error {
	task.result[task.index] = task.scanSplit(task.index)
	return nil
}

//TaskPredict fills the prediction rows [begin, end).
type TaskPredict struct {
	begin, end int
	predict    func(begin, end int) error
}

func (task *TaskPredict) Execute() error {
	return task.predict(task.begin, task.end)
}
