package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(50) NOT NULL CHECK (trigger_type IN
					('entity_created', 'entity_stage_changed', 'entity_updated', 'scheduled', 'manual')),
				trigger_config JSONB NOT NULL DEFAULT '{}',
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT true,
				execution_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_org_trigger ON workflows(organization_id, trigger_type) WHERE is_active;
			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type) WHERE is_active;
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE workflow_executions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				organization_id VARCHAR(255) NOT NULL,
				trigger_data JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL CHECK (status IN ('running', 'completed', 'failed', 'paused')),
				current_step INTEGER NOT NULL DEFAULT 0 CHECK (current_step >= 0),
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_executions_workflow ON workflow_executions(workflow_id, started_at DESC);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS activities (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL,
				subject TEXT NOT NULL,
				description TEXT,
				assigned_to VARCHAR(255),
				due_date TIMESTAMP WITH TIME ZONE,
				status VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_activities_org_status ON activities(organization_id, status);
		`,
	}
}
